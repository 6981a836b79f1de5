package contentvalidation

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lithictech/go-contentvalidation/apiproblem"
	"github.com/lithictech/go-contentvalidation/convext"
	"github.com/lithictech/go-contentvalidation/inputfilter"
	"github.com/lithictech/go-contentvalidation/logctx"
	"github.com/lithictech/go-contentvalidation/parallel"
	"github.com/lithictech/go-contentvalidation/stopwatch"
)

const (
	detailNoDataContainer = "content negotiation parameter data is not initialized; cannot validate request"
	detailMissingSchema   = "Listed input filter \"%s\" does not exist; cannot validate request"
	detailUnknownField    = "Unrecognized field \"%s\""
)

var defaultMethodsWithoutBodies = []string{http.MethodGet, http.MethodHead, http.MethodOptions}

// Dispatcher validates routed requests. It is safe for concurrent use.
type Dispatcher struct {
	services map[string]Settings
	rest     map[string]string
	schemas  SchemaRegistry
	events   *Bus
	logger   *logrus.Entry
	cache    *schemaCache

	mu       sync.RWMutex
	bodyless map[string]bool
}

func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		services: cfg.Services,
		rest:     cfg.RestResources,
		schemas:  cfg.Schemas,
		events:   cfg.Events,
		logger:   cfg.Logger,
		cache:    newSchemaCache(),
		bodyless: map[string]bool{},
	}
	if d.services == nil {
		d.services = map[string]Settings{}
	}
	if d.events == nil {
		d.events = NewBus()
	}
	if d.logger == nil {
		d.logger = logctx.UnconfiguredLogger()
	}
	for _, m := range defaultMethodsWithoutBodies {
		d.AddMethodWithoutBody(m)
	}
	for _, m := range cfg.MethodsWithoutBodies {
		d.AddMethodWithoutBody(m)
	}
	return d
}

// AddMethodWithoutBody treats method like GET: its query params are the payload,
// and it is only validated with an explicit method schema.
func (d *Dispatcher) AddMethodWithoutBody(method string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bodyless[strings.ToUpper(method)] = true
}

func (d *Dispatcher) hasNoBody(method string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bodyless[method]
}

func (d *Dispatcher) Events() *Bus {
	return d.events
}

func (d *Dispatcher) log(ctx context.Context) *logrus.Entry {
	if l := logctx.LoggerOrNil(ctx); l != nil {
		return l
	}
	return d.logger
}

// Dispatch validates r and, on success, writes the final data into r.Data.
// The returned error is only for registry faults; validation failures are in Outcome.Problem.
func (d *Dispatcher) Dispatch(ctx context.Context, r *Request) (Outcome, error) {
	if r == nil || r.ServiceID == "" {
		return Outcome{}, nil
	}
	logger := d.log(ctx).WithField("contentvalidation_service", r.ServiceID)
	method := strings.ToUpper(r.Method)

	if r.Data == nil {
		logger.Error("contentvalidation_no_data_container")
		return d.fail(logger, apiproblem.New(http.StatusInternalServerError, detailNoDataContainer)), nil
	}

	bodyless := d.hasNoBody(method)
	var received interface{}
	if bodyless {
		received = r.Data.QueryParams()
	} else {
		received = r.Data.BodyParams()
	}
	received = normalizeData(received)

	identifier := d.rest[r.ServiceID]
	collection := IsCollection(identifier, method, received, r.RouteParams, r.Data.QueryParams())

	settings, ok := d.services[r.ServiceID]
	name := ""
	if ok {
		name = SelectFilter(settings, method, collection, bodyless)
	}
	if name == "" {
		logger.WithField("reason", "no_input_filter").Debug("contentvalidation_skipped")
		return Outcome{}, nil
	}
	logger = logger.WithFields(logrus.Fields{
		"contentvalidation_schema":     name,
		"contentvalidation_collection": collection,
	})

	resolved, found, err := d.cache.resolve(d.schemas, name)
	if err != nil {
		return Outcome{}, errors.Wrapf(err, "resolving input filter %q", name)
	}
	if !found {
		logger.Error("contentvalidation_missing_input_filter")
		return d.fail(logger, apiproblem.Newf(http.StatusInternalServerError, detailMissingSchema, name)), nil
	}
	logger.Debug("contentvalidation_selected")

	data := received
	if !collection && len(r.Files) > 0 {
		data = MergeFiles(data, r.Files)
	}

	schema := inputfilter.Fresh(resolved)
	if collection && !bodyless && !inputfilter.IsCollection(schema) {
		schema = inputfilter.NewCollection(schema)
	}

	// Listeners get their own copy; the submitted data is also the pruning reference.
	event := &BeforeValidateEvent{Request: r, Schema: schema, Data: convext.DeepCopy(data)}
	if p := d.events.FireUntilProblem(ctx, EventBeforeValidate, event); p != nil {
		return d.fail(logger, p), nil
	}
	if event.Data != nil {
		data = mergePreservingKeys(data, event.Data)
	}

	if err := schema.SetData(data); err != nil {
		return d.fail(logger, apiproblem.New(http.StatusBadRequest, err.Error())), nil
	}
	if method == http.MethodPatch {
		if p := setPatchGroup(schema, data, collection); p != nil {
			return d.fail(logger, p), nil
		}
	}
	if !schema.IsValid(ctx) {
		return d.fail(logger, apiproblem.NewValidation(schema.Messages())), nil
	}

	out := data
	if !settings.UsesRawData() {
		out = schema.Values()
	}
	if ur, ok := schema.(inputfilter.UnknownReporter); ok && ur.HasUnknown() {
		unknown := ur.Unknown()
		if settings.AllowsOnlyFields() {
			order, _ := r.Data.(FieldOrderer)
			detail := UnknownFieldsDetail(unknown, collection, order)
			return d.fail(logger, apiproblem.New(http.StatusUnprocessableEntity, detail)), nil
		}
		if !settings.UsesRawData() {
			out = mergeUnknown(out, unknown, collection)
		}
	}
	if settings.RemovesEmptyData() {
		out = RemoveEmptyData(out, received)
	}
	r.Data.SetBodyParams(out)
	return Outcome{Schema: schema, Data: out}, nil
}

func setPatchGroup(schema inputfilter.Schema, data interface{}, collection bool) *apiproblem.Problem {
	err := schema.SetValidationGroup(ValidationGroupFor(data, collection))
	if err == nil {
		return nil
	}
	var invalid inputfilter.InvalidGroupError
	if errors.As(err, &invalid) {
		return apiproblem.Newf(http.StatusBadRequest, detailUnknownField, invalid.Field)
	}
	return apiproblem.New(http.StatusBadRequest, err.Error())
}

func (d *Dispatcher) fail(logger *logrus.Entry, p *apiproblem.Problem) Outcome {
	logger.WithFields(logrus.Fields{
		"contentvalidation_status": p.Status,
		"contentvalidation_detail": p.Detail,
	}).Warn("contentvalidation_failed")
	return Outcome{Problem: p}
}

// normalizeData treats missing payloads as empty objects.
func normalizeData(data interface{}) interface{} {
	switch t := data.(type) {
	case nil:
		return map[string]interface{}{}
	case string:
		if t == "" {
			return map[string]interface{}{}
		}
	case map[string]interface{}:
		if t == nil {
			return map[string]interface{}{}
		}
	}
	return data
}

// Warm resolves every schema named by the service settings, with up to parallelism at once,
// so the first requests do not pay for schema construction.
// It returns an error listing every schema that could not be resolved.
func (d *Dispatcher) Warm(ctx context.Context, parallelism int) error {
	logger := d.log(ctx)
	seen := map[string]bool{}
	var names []string
	for _, s := range d.services {
		for _, n := range s.SchemaNames() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	sw := stopwatch.Start(logger.WithField("schema_count", len(names)), "contentvalidation_warm")
	err := parallel.ForEach(len(names), parallelism, func(idx int) error {
		_, found, err := d.cache.resolve(d.schemas, names[idx])
		if err != nil {
			return errors.Wrapf(err, "resolving input filter %q", names[idx])
		}
		if !found {
			return fmt.Errorf("input filter %q does not exist", names[idx])
		}
		return nil
	})
	if err != nil {
		sw.Fail(err)
		return err
	}
	sw.Finish()
	return nil
}
