package contentvalidation_test

import (
	"context"
	"errors"
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/lithictech/go-contentvalidation/apiproblem"
	"github.com/lithictech/go-contentvalidation/contentvalidation"
	"github.com/lithictech/go-contentvalidation/inputfilter"
)

// alwaysValid declares no fields and accepts any data.
type alwaysValid struct {
	*inputfilter.InputFilter
}

func (alwaysValid) IsValid(context.Context) bool { return true }

func (alwaysValid) Clone() inputfilter.Schema { return alwaysValid{inputfilter.New()} }

// countingRegistry counts resolutions and can fail them.
type countingRegistry struct {
	*inputfilter.Manager
	gets int
	err  error
	nils bool
}

func (r *countingRegistry) Get(name string) (inputfilter.Schema, error) {
	r.gets++
	if r.err != nil {
		return nil, r.err
	}
	if r.nils {
		return nil, nil
	}
	return r.Manager.Get(name)
}

var _ = Describe("Dispatcher", func() {
	var (
		ctx      context.Context
		manager  *inputfilter.Manager
		cfg      contentvalidation.Config
		logger   *logrus.Logger
		logHook  *test.Hook
		no, yes  = false, true
		regex    inputfilter.Validator
		fooInput = func() *inputfilter.Input {
			return inputfilter.NewInput("foo").WithValidators(inputfilter.Digits())
		}
		barInput = func() *inputfilter.Input {
			return inputfilter.NewInput("bar").WithValidators(regex)
		}
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		regex, err = inputfilter.Regex("/^[a-z]+/i")
		Expect(err).ToNot(HaveOccurred())
		manager = inputfilter.NewManager(nil)
		manager.RegisterSchema("FooValidator", inputfilter.New(fooInput(), barInput()))
		logger, logHook = test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		cfg = contentvalidation.Config{
			Services:      map[string]contentvalidation.Settings{"Foo": {InputFilter: "FooValidator"}},
			RestResources: map[string]string{"Foo": "foo_id"},
			Schemas:       manager,
			Logger:        logger.WithFields(nil),
		}
	})

	dispatch := func(r *contentvalidation.Request) contentvalidation.Outcome {
		o, err := contentvalidation.New(cfg).Dispatch(ctx, r)
		Expect(err).ToNot(HaveOccurred())
		return o
	}

	post := func(body interface{}) (*contentvalidation.Request, *paramData) {
		pd := &paramData{body: body}
		return &contentvalidation.Request{Method: "POST", ServiceID: "Foo", Data: pd}, pd
	}

	Describe("skipping", func() {
		It("skips requests without a service", func() {
			Expect(dispatch(&contentvalidation.Request{Method: "POST"}).Skipped()).To(BeTrue())
			Expect(dispatch(nil).Skipped()).To(BeTrue())
		})

		It("skips services without settings", func() {
			r, pd := post(obj{"foo": "abc"})
			r.ServiceID = "Bar"
			Expect(dispatch(r).Skipped()).To(BeTrue())
			Expect(pd.sets).To(Equal(0))
		})

		DescribeTable("skips body-less methods without an explicit schema",
			func(method string) {
				pd := &paramData{query: obj{"foo": "abc"}}
				o := dispatch(&contentvalidation.Request{Method: method, ServiceID: "Foo", Data: pd})
				Expect(o.Skipped()).To(BeTrue())
				Expect(pd.sets).To(Equal(0))
			},
			Entry("GET", "GET"),
			Entry("HEAD", "HEAD"),
			Entry("OPTIONS", "OPTIONS"),
		)

		It("skips custom body-less methods", func() {
			cfg.MethodsWithoutBodies = []string{"LINK"}
			d := contentvalidation.New(cfg)
			d.AddMethodWithoutBody("unlink")
			for _, m := range []string{"LINK", "UNLINK"} {
				o, err := d.Dispatch(ctx, &contentvalidation.Request{Method: m, ServiceID: "Foo", Data: &paramData{}})
				Expect(err).ToNot(HaveOccurred())
				Expect(o.Skipped()).To(BeTrue())
			}
		})

		It("skips DELETE validated only by input_filter", func() {
			pd := &paramData{body: obj{"foo": "abc"}}
			r := &contentvalidation.Request{Method: "DELETE", ServiceID: "Foo", Data: pd, RouteParams: map[string]string{"foo_id": "1"}}
			Expect(dispatch(r).Skipped()).To(BeTrue())
		})
	})

	It("fails with a 500 without a data container", func() {
		o := dispatch(&contentvalidation.Request{Method: "POST", ServiceID: "Foo"})
		Expect(o.Problem.Status).To(Equal(500))
		Expect(o.Problem.Detail).To(Equal("content negotiation parameter data is not initialized; cannot validate request"))
	})

	It("fails with a 500 when the schema does not exist", func() {
		cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "Missing"}
		r, _ := post(obj{"foo": "1"})
		o := dispatch(r)
		Expect(o.Problem.Status).To(Equal(500))
		Expect(o.Problem.Detail).To(Equal(`Listed input filter "Missing" does not exist; cannot validate request`))
		Expect(logHook.Entries).To(ContainElement(HaveField("Message", "contentvalidation_missing_input_filter")))
	})

	It("fails with a 500 when the registry does not return a schema", func() {
		cfg.Schemas = &countingRegistry{Manager: manager, nils: true}
		r, _ := post(obj{"foo": "1"})
		Expect(dispatch(r).Problem.Status).To(Equal(500))
	})

	It("returns registry faults as errors", func() {
		cfg.Schemas = &countingRegistry{Manager: manager, err: errors.New("kaboom")}
		r, _ := post(obj{"foo": "1"})
		_, err := contentvalidation.New(cfg).Dispatch(ctx, r)
		Expect(err).To(MatchError(`resolving input filter "FooValidator": kaboom`))
	})

	It("resolves each schema once", func() {
		reg := &countingRegistry{Manager: manager}
		cfg.Schemas = reg
		d := contentvalidation.New(cfg)
		for i := 0; i < 3; i++ {
			r, _ := post(obj{"foo": "1", "bar": "abc"})
			o, err := d.Dispatch(ctx, r)
			Expect(err).ToNot(HaveOccurred())
			Expect(o.Passed()).To(BeTrue())
		}
		Expect(reg.gets).To(Equal(1))
	})

	Describe("entity validation", func() {
		It("passes valid content and commits the raw data", func() {
			r, pd := post(obj{"foo": "123", "bar": "abc"})
			o := dispatch(r)
			Expect(o.Passed()).To(BeTrue())
			Expect(o.Schema).To(BeAssignableToTypeOf(&inputfilter.InputFilter{}))
			Expect(pd.body).To(Equal(obj{"foo": "123", "bar": "abc"}))
			Expect(pd.sets).To(Equal(1))
			Expect(logHook.Entries).To(ContainElement(HaveField("Message", "contentvalidation_selected")))
		})

		It("fails invalid content with validation messages", func() {
			r, pd := post(obj{"foo": "abc", "bar": 123.0})
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(http.StatusUnprocessableEntity))
			Expect(o.Problem.Title).To(Equal("Unprocessable Entity"))
			Expect(o.Problem.Detail).To(Equal("Failed Validation"))
			Expect(o.Problem.ValidationMessages()).To(Equal(inputfilter.Messages{
				"foo": map[string]string{"notDigits": "The input must contain only digits"},
				"bar": map[string]string{"regexNotMatch": "The input does not match against pattern '/^[a-z]+/i'"},
			}))
			Expect(pd.sets).To(Equal(0))
			Expect(logHook.LastEntry().Message).To(Equal("contentvalidation_failed"))
			Expect(logHook.LastEntry().Level).To(Equal(logrus.WarnLevel))
		})

		It("fails empty posts for required fields", func() {
			r, _ := post(nil)
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.ValidationMessages()).To(HaveKey("foo"))
		})

		It("fails payloads the schema cannot accept with a 400", func() {
			r, _ := post("hello")
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(400))
		})

		It("uses method specific schemas", func() {
			manager.RegisterSchema("FooPut", inputfilter.New(inputfilter.NewInput("baz")))
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "FooValidator", Filters: map[string]string{"PUT": "FooPut"}}
			pd := &paramData{body: obj{"baz": "x"}}
			o := dispatch(&contentvalidation.Request{Method: "PUT", ServiceID: "Foo", Data: pd, RouteParams: map[string]string{"foo_id": "1"}})
			Expect(o.Passed()).To(BeTrue())
		})

		It("validates DELETE bodies with an explicit schema", func() {
			cfg.Services["Foo"] = contentvalidation.Settings{Filters: map[string]string{"DELETE": "FooValidator"}}
			pd := &paramData{body: obj{"foo": "abc", "bar": 123.0}}
			o := dispatch(&contentvalidation.Request{Method: "DELETE", ServiceID: "Foo", Data: pd, RouteParams: map[string]string{"foo_id": "1"}})
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.ValidationMessages()).To(HaveKeyWithValue("foo", HaveLen(1)))
			Expect(o.Problem.ValidationMessages()).To(HaveKeyWithValue("bar", HaveLen(1)))
		})

		It("merges files into entity data before validating", func() {
			manager.RegisterSchema("Upload", inputfilter.New(inputfilter.NewInput("title"), inputfilter.NewInput("upload")))
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "Upload"}
			r, pd := post(obj{"title": "t"})
			r.Files = obj{"upload": obj{"name": "a.txt", "tmp_name": "/tmp/php1", "size": 3.0}}
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(HaveKeyWithValue("upload", HaveKeyWithValue("name", "a.txt")))
		})
	})

	Describe("body-less methods with explicit schemas", func() {
		BeforeEach(func() {
			cfg.Services["Foo"] = contentvalidation.Settings{Filters: map[string]string{"GET": "FooValidator"}}
		})

		It("validates an entity request's query params", func() {
			pd := &paramData{query: obj{"foo": "abc", "bar": "123"}}
			o := dispatch(&contentvalidation.Request{Method: "GET", ServiceID: "Foo", Data: pd, RouteParams: map[string]string{"foo_id": "1"}})
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.ValidationMessages()).To(HaveKey("foo"))
		})

		It("validates a collection request's query params as a single record", func() {
			pd := &paramData{query: obj{"foo": "123", "bar": "abc"}}
			o := dispatch(&contentvalidation.Request{Method: "GET", ServiceID: "Foo", Data: pd})
			Expect(o.Passed()).To(BeTrue())
			Expect(inputfilter.IsCollection(o.Schema)).To(BeFalse())
			Expect(pd.body).To(Equal(obj{"foo": "123", "bar": "abc"}))
		})

		It("rejects unknown query params under the strict policy", func() {
			cfg.Services["Foo"] = contentvalidation.Settings{
				Filters:                  map[string]string{"GET": "FooValidator"},
				AllowsOnlyFieldsInFilter: &yes,
			}
			pd := &paramData{query: obj{"foo": "123", "bar": "abc", "undefined": "x"}}
			o := dispatch(&contentvalidation.Request{Method: "GET", ServiceID: "Foo", Data: plainData{pd}, RouteParams: map[string]string{"foo_id": "1"}})
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.Detail).To(Equal("Unrecognized fields: undefined"))
		})
	})

	Describe("collections", func() {
		put := func(body interface{}) (*contentvalidation.Request, *paramData) {
			pd := &paramData{body: body}
			return &contentvalidation.Request{Method: "PUT", ServiceID: "Foo", Data: pd}, pd
		}

		It("validates every record", func() {
			r, pd := put(list{obj{"foo": "1", "bar": "a"}, obj{"foo": "2", "bar": "b"}})
			o := dispatch(r)
			Expect(o.Passed()).To(BeTrue())
			Expect(inputfilter.IsCollection(o.Schema)).To(BeTrue())
			Expect(pd.body).To(Equal(list{obj{"foo": "1", "bar": "a"}, obj{"foo": "2", "bar": "b"}}))
		})

		It("keys failures by record", func() {
			r, _ := put(list{obj{"foo": "1", "bar": "a"}, obj{"foo": "x", "bar": "b"}})
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.ValidationMessages()).To(Equal(inputfilter.Messages{
				"1": inputfilter.Messages{"foo": map[string]string{"notDigits": "The input must contain only digits"}},
			}))
		})

		It("prefers the collection schema over input_filter", func() {
			manager.RegisterSchema("PutCollection", inputfilter.New(inputfilter.NewInput("x")))
			cfg.Services["Foo"] = contentvalidation.Settings{
				InputFilter: "FooValidator",
				Filters:     map[string]string{"PUT_COLLECTION": "PutCollection"},
			}
			r, _ := put(list{obj{"x": "1"}})
			Expect(dispatch(r).Passed()).To(BeTrue())
		})

		It("validates posted collections", func() {
			r, _ := post(list{obj{"foo": "1", "bar": "a"}, obj{"foo": "x", "bar": "b"}})
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.ValidationMessages()).To(HaveKey("1"))
		})

		It("validates a posted entity when collections are possible", func() {
			r, _ := post(obj{"foo": "1", "bar": "a"})
			o := dispatch(r)
			Expect(o.Passed()).To(BeTrue())
			Expect(inputfilter.IsCollection(o.Schema)).To(BeFalse())
		})

		It("validates DELETE collection bodies with an explicit schema", func() {
			cfg.Services["Foo"] = contentvalidation.Settings{Filters: map[string]string{"DELETE_COLLECTION": "FooValidator"}}
			pd := &paramData{body: list{obj{"foo": "abc", "bar": 123.0}}}
			o := dispatch(&contentvalidation.Request{Method: "DELETE", ServiceID: "Foo", Data: pd})
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.ValidationMessages()).To(HaveKeyWithValue("0", HaveKey("foo")))
		})

		It("does not wrap schemas that already validate collections", func() {
			custom := inputfilter.NewCollection(inputfilter.New(fooInput()))
			manager.RegisterSchema("Custom", custom)
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "Custom"}
			r, _ := put(list{obj{"foo": "1"}, obj{"foo": "x"}})
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.ValidationMessages()).To(Equal(inputfilter.Messages{
				"1": inputfilter.Messages{"foo": map[string]string{"notDigits": "The input must contain only digits"}},
			}))
		})

		It("never merges files into collections", func() {
			r, pd := put(list{obj{"foo": "1", "bar": "a"}})
			r.Files = obj{"upload": obj{"name": "a.txt"}}
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(list{obj{"foo": "1", "bar": "a"}}))
		})

		It("does not duplicate indexed data for schemas without fields", func() {
			manager.RegisterSchema("Free", alwaysValid{inputfilter.New()})
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "Free"}
			for _, body := range []interface{}{
				list{list{"foo"}, list{"bar"}},
				obj{"foo": "abc", "bar": "baz"},
			} {
				r, pd := post(body)
				Expect(dispatch(r).Passed()).To(BeTrue())
				Expect(pd.body).To(Equal(body))
			}
		})
	})

	Describe("PATCH", func() {
		patch := func(body interface{}, routeParams map[string]string) (*contentvalidation.Request, *paramData) {
			pd := &paramData{body: body}
			return &contentvalidation.Request{Method: "PATCH", ServiceID: "Foo", Data: pd, RouteParams: routeParams}, pd
		}

		It("validates only submitted fields", func() {
			r, _ := patch(obj{"foo": "123"}, map[string]string{"foo_id": "1"})
			Expect(dispatch(r).Passed()).To(BeTrue())
		})

		It("fails unknown fields with a 400", func() {
			r, _ := patch(obj{"baz": "x"}, map[string]string{"foo_id": "1"})
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(400))
			Expect(o.Problem.Detail).To(Equal(`Unrecognized field "baz"`))
		})

		It("fails blank field names with a 400", func() {
			r, _ := patch(obj{"": "x"}, map[string]string{"foo_id": "1"})
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(400))
			Expect(o.Problem.Detail).To(Equal(`Unrecognized field ""`))
		})

		It("fails submitted fields that are invalid", func() {
			r, _ := patch(obj{"foo": "abc"}, map[string]string{"foo_id": "1"})
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.ValidationMessages()).To(HaveKey("foo"))
			Expect(o.Problem.ValidationMessages()).ToNot(HaveKey("bar"))
		})

		It("treats a zero identifier as an entity", func() {
			r, _ := patch(obj{"foo": "123"}, map[string]string{"foo_id": "0"})
			o := dispatch(r)
			Expect(o.Passed()).To(BeTrue())
			Expect(inputfilter.IsCollection(o.Schema)).To(BeFalse())
		})

		It("validates each record of a collection with its own fields", func() {
			r, _ := patch(list{obj{"foo": "1"}, obj{"bar": "abc"}}, nil)
			Expect(dispatch(r).Passed()).To(BeTrue())

			r, _ = patch(list{obj{"foo": "1"}, obj{"bar": "123"}}, nil)
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.ValidationMessages()).To(HaveKeyWithValue("1", HaveKey("bar")))
		})
	})

	Describe("unknown fields", func() {
		var trim inputfilter.Filter

		BeforeEach(func() {
			trim = inputfilter.StringTrim("")
			manager.RegisterSchema("FooFilter", inputfilter.New(inputfilter.NewInput("foo").WithFilters(trim)))
		})

		It("commits raw data including unknown fields", func() {
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "FooFilter"}
			r, pd := post(obj{"foo": " abc ", "unknown": "value"})
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(obj{"foo": " abc ", "unknown": "value"}))
		})

		It("merges unknown fields over filtered data", func() {
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "FooFilter", UseRawData: &no}
			r, pd := post(obj{"foo": " abc ", "unknown": "value"})
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(obj{"foo": "abc", "unknown": "value"}))
		})

		It("commits filtered data", func() {
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "FooFilter", UseRawData: &no}
			r, pd := post(obj{"foo": " abc "})
			o := dispatch(r)
			Expect(o.Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(obj{"foo": "abc"}))
			Expect(o.Data).To(Equal(pd.body))
		})

		It("keeps unknown data for schemas without fields", func() {
			manager.RegisterSchema("Empty", inputfilter.New())
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "Empty", UseRawData: &no}
			r, pd := post(obj{"foo": " abc ", "unknown": "value"})
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(obj{"foo": " abc ", "unknown": "value"}))
		})

		It("rejects unknown fields under the strict policy", func() {
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "FooFilter", AllowsOnlyFieldsInFilter: &yes, UseRawData: &yes}
			r, pd := post(obj{"foo": " abc ", "unknown": "value"})
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.Detail).To(Equal("Unrecognized fields: unknown"))
			Expect(pd.sets).To(Equal(0))
		})

		It("rejects unknown fields of collection records in submission order", func() {
			manager.RegisterSchema("FooBar", inputfilter.New(inputfilter.NewInput("foo"), inputfilter.NewInput("bar")))
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "FooBar", AllowsOnlyFieldsInFilter: &yes}
			r, pd := post(list{
				obj{"foo": "a", "bar": "b"},
				obj{"foo": "a", "bar": "b", "unknown": "c", "other": "d"},
				obj{"foo": "a", "bar": "b"},
				obj{"foo": "a", "bar": "b", "key": "e"},
			})
			pd.order = map[string][]string{
				"1": {"foo", "bar", "unknown", "other"},
				"3": {"foo", "bar", "key"},
			}
			o := dispatch(r)
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.Detail).To(Equal("Unrecognized fields: [1: unknown, other], [3: key]"))
		})

		It("merges unknown fields into each filtered record", func() {
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "FooFilter", UseRawData: &no}
			r, pd := post(list{obj{"foo": " a "}, obj{"foo": " b ", "extra": 1.0}})
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(list{obj{"foo": "a"}, obj{"foo": "b", "extra": 1.0}}))
		})
	})

	Describe("removing empty data", func() {
		BeforeEach(func() {
			trim := inputfilter.StringTrim("")
			schema := inputfilter.New(
				inputfilter.NewInput("foo").WithFilters(trim),
				inputfilter.NewInput("bar").WithRequired(false).WithFilters(trim),
				inputfilter.NewInput("empty").WithRequired(false).WithFilters(trim),
			).AddSchema("empty_array", inputfilter.New(
				inputfilter.NewInput("empty_field").WithRequired(false).WithFilters(trim),
			))
			manager.RegisterSchema("FooFilter", schema)
			cfg.Services["Foo"] = contentvalidation.Settings{
				InputFilter:              "FooFilter",
				UseRawData:               &no,
				AllowsOnlyFieldsInFilter: &yes,
				RemoveEmptyData:          &yes,
			}
		})

		It("leaves the data alone when it fails validation", func() {
			r, pd := post(obj{})
			Expect(dispatch(r).Problem.Status).To(Equal(422))
			Expect(pd.body).To(Equal(obj{}))
		})

		DescribeTable("keeps booleans that were submitted",
			func(value bool) {
				r, pd := post(obj{"foo": value})
				Expect(dispatch(r).Passed()).To(BeTrue())
				Expect(pd.body).To(Equal(obj{"foo": value}))
			},
			Entry("true", true),
			Entry("false", false),
		)

		It("commits filtered scalars", func() {
			r, pd := post(obj{"foo": " string "})
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(obj{"foo": "string"}))
		})

		It("drops values that are empty after filtering", func() {
			r, pd := post(obj{"foo": obj{"test": list{}}})
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(obj{}))
		})

		It("drops nulls the schema added and keeps nulls that were submitted", func() {
			r, pd := post(obj{"foo": " abc ", "empty": nil, "empty_array": obj{"empty_field": nil}})
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(obj{"foo": "abc", "empty": nil, "empty_array": obj{"empty_field": nil}}))
		})

		It("does not remove empty data unless configured", func() {
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "FooFilter", UseRawData: &no}
			r, pd := post(obj{"foo": " abc "})
			Expect(dispatch(r).Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(obj{
				"foo":         "abc",
				"bar":         nil,
				"empty":       nil,
				"empty_array": obj{"empty_field": nil},
			}))
		})
	})

	Describe("before validate listeners", func() {
		It("receive the schema and data", func() {
			bus := contentvalidation.NewBus()
			var seen *contentvalidation.BeforeValidateEvent
			bus.Subscribe(contentvalidation.EventBeforeValidate, func(_ context.Context, e *contentvalidation.BeforeValidateEvent) *apiproblem.Problem {
				seen = e
				return nil
			})
			cfg.Events = bus
			r, _ := post(obj{"foo": "1", "bar": "a"})
			o := dispatch(r)
			Expect(o.Passed()).To(BeTrue())
			Expect(seen.Name).To(Equal(contentvalidation.EventBeforeValidate))
			Expect(seen.Schema).To(BeIdenticalTo(o.Schema))
			Expect(seen.Request).To(BeIdenticalTo(r))
			Expect(seen.Data).To(Equal(obj{"foo": "1", "bar": "a"}))
		})

		It("can fail the request, stopping later listeners", func() {
			d := contentvalidation.New(cfg)
			secondCalled := false
			d.Events().Subscribe(contentvalidation.EventBeforeValidate, func(context.Context, *contentvalidation.BeforeValidateEvent) *apiproblem.Problem {
				return apiproblem.New(422, "Validation failed")
			})
			d.Events().Subscribe(contentvalidation.EventBeforeValidate, func(context.Context, *contentvalidation.BeforeValidateEvent) *apiproblem.Problem {
				secondCalled = true
				return nil
			})
			r, pd := post(obj{"foo": "1", "bar": "a"})
			o, err := d.Dispatch(ctx, r)
			Expect(err).ToNot(HaveOccurred())
			Expect(o.Problem.Status).To(Equal(422))
			Expect(o.Problem.Detail).To(Equal("Validation failed"))
			Expect(secondCalled).To(BeFalse())
			Expect(pd.sets).To(Equal(0))
		})

		It("can modify the data before validation", func() {
			d := contentvalidation.New(cfg)
			d.Events().Subscribe(contentvalidation.EventBeforeValidate, func(_ context.Context, e *contentvalidation.BeforeValidateEvent) *apiproblem.Problem {
				e.Data = obj{"foo": "999"}
				return nil
			})
			r, pd := post(obj{"foo": "abc", "bar": "a"})
			o, err := d.Dispatch(ctx, r)
			Expect(err).ToNot(HaveOccurred())
			Expect(o.Passed()).To(BeTrue())
			Expect(pd.body).To(Equal(obj{"foo": "999", "bar": "a"}))
		})

		It("cannot modify the submitted data in place", func() {
			manager.RegisterSchema("Anything", alwaysValid{inputfilter.New()})
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "Anything", UseRawData: &yes, RemoveEmptyData: &yes}
			d := contentvalidation.New(cfg)
			d.Events().Subscribe(contentvalidation.EventBeforeValidate, func(_ context.Context, e *contentvalidation.BeforeValidateEvent) *apiproblem.Problem {
				e.Data.(obj)["x"] = nil
				return nil
			})
			body := obj{"foo": "a"}
			r, pd := post(body)
			o, err := d.Dispatch(ctx, r)
			Expect(err).ToNot(HaveOccurred())
			Expect(o.Passed()).To(BeTrue())
			Expect(body).To(Equal(obj{"foo": "a"}))
			Expect(pd.body).To(Equal(obj{"foo": "a"}))
		})

		It("ignores other events", func() {
			d := contentvalidation.New(cfg)
			d.Events().Subscribe("other", func(context.Context, *contentvalidation.BeforeValidateEvent) *apiproblem.Problem {
				return apiproblem.New(500, "nope")
			})
			r, _ := post(obj{"foo": "1", "bar": "a"})
			o, err := d.Dispatch(ctx, r)
			Expect(err).ToNot(HaveOccurred())
			Expect(o.Passed()).To(BeTrue())
		})
	})

	Describe("concurrent dispatch", func() {
		It("shares one lazily resolved schema between requests", func() {
			d := contentvalidation.New(cfg)
			const n = 50
			outcomes := make([]contentvalidation.Outcome, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			wg.Add(n + 1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(d.Warm(ctx, 4)).To(Succeed())
			}()
			for i := 0; i < n; i++ {
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					var body interface{} = obj{"foo": "1", "bar": "a"}
					if i%2 == 1 {
						body = list{obj{"foo": "1", "bar": "a"}, obj{"foo": "2", "bar": "b"}}
					}
					r, _ := post(body)
					outcomes[i], errs[i] = d.Dispatch(ctx, r)
				}(i)
			}
			wg.Wait()
			for i := 0; i < n; i++ {
				Expect(errs[i]).ToNot(HaveOccurred())
				Expect(outcomes[i].Passed()).To(BeTrue(), "request %d: %v", i, outcomes[i].Problem)
				Expect(outcomes[i].Schema).ToNot(BeNil())
				Expect(inputfilter.IsCollection(outcomes[i].Schema)).To(Equal(i%2 == 1))
			}
		})
	})

	Describe("Warm", func() {
		It("resolves every configured schema", func() {
			reg := &countingRegistry{Manager: manager}
			cfg.Schemas = reg
			manager.RegisterSchema("FooPatch", inputfilter.New(fooInput()))
			cfg.Services["Foo"] = contentvalidation.Settings{InputFilter: "FooValidator", Filters: map[string]string{"PATCH": "FooPatch"}}
			d := contentvalidation.New(cfg)
			Expect(d.Warm(ctx, 2)).To(Succeed())
			Expect(reg.gets).To(Equal(2))
			Expect(logHook.LastEntry().Message).To(Equal("contentvalidation_warm_finished"))

			r, _ := post(obj{"foo": "1", "bar": "a"})
			_, err := d.Dispatch(ctx, r)
			Expect(err).ToNot(HaveOccurred())
			Expect(reg.gets).To(Equal(2))
		})

		It("errors for missing schemas", func() {
			cfg.Services["Bar"] = contentvalidation.Settings{InputFilter: "Nope"}
			err := contentvalidation.New(cfg).Warm(ctx, 1)
			Expect(err).To(MatchError(ContainSubstring(`input filter "Nope" does not exist`)))
			Expect(logHook.LastEntry().Message).To(Equal("contentvalidation_warm_failed"))
		})
	})
})
