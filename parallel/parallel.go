// Package parallel runs indexed work with bounded concurrency.
package parallel

import (
	"errors"
	"sync"

	"github.com/hashicorp/go-multierror"
)

var ErrInvalidParallelism = errors.New("degree of parallelism must be > 0")

type Processor func(idx int) error

// ForEach calls process for every index in [0, total), with at most n calls running at once.
// Errors from every call are combined into a single *multierror.Error,
// ordered by index. ForEach returns nil if every call succeeded.
//
// If callers need process to return data,
// they should allocate a slice of the data they need,
// and assign to the slice index while processing.
func ForEach(total int, n int, process Processor) error {
	if n <= 0 {
		return ErrInvalidParallelism
	}
	semaphore := make(chan struct{}, n)
	errs := make([]error, total)

	wg := sync.WaitGroup{}
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func(i int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			errs[i] = process(i)
		}(i)
	}
	wg.Wait()
	return multierror.Append(nil, errs...).ErrorOrNil()
}
