/*
Package stopwatch is used to time things.
Create a stopwatch with Start,
then on success record the timing with Finish,
or on failure record it with Fail.

Failures are logged as a different event ("<operation>_failed"),
since their timings can be vastly different.
*/
package stopwatch

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Stopwatch struct {
	start     time.Time
	operation string
	logger    *logrus.Entry
}

func Start(logger *logrus.Entry, operation string) *Stopwatch {
	sw := &Stopwatch{
		start:     time.Now(),
		operation: operation,
		logger:    logger,
	}

	sw.logger.Debug(operation + "_started")
	return sw
}

type FinishOpts struct {
	Logger *logrus.Entry
}

func (sw *Stopwatch) FinishWith(opts FinishOpts) {
	logger := sw.logger
	if opts.Logger != nil {
		logger = opts.Logger
	}
	logger = logger.WithField("elapsed", time.Since(sw.start).Seconds())
	logger.Info(sw.operation + "_finished")
}

func (sw *Stopwatch) Finish() {
	sw.FinishWith(FinishOpts{})
}

// Fail records the timing of a failed operation at warn level.
func (sw *Stopwatch) Fail(err error) {
	sw.logger.WithError(err).
		WithField("elapsed", time.Since(sw.start).Seconds()).
		Warn(sw.operation + "_failed")
}
