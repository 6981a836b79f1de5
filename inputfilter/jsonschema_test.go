package inputfilter_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lithictech/go-contentvalidation/inputfilter"
)

var _ = Describe("JSONSchema", func() {
	ctx := context.Background()
	var s *inputfilter.JSONSchema

	BeforeEach(func() {
		var err error
		s, err = inputfilter.NewJSONSchemaString(`{
			"type": "object",
			"required": ["name", "age"],
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"age": {"type": "integer"}
			}
		}`)
		Expect(err).ToNot(HaveOccurred())
	})

	It("validates data", func() {
		Expect(s.SetData(map[string]interface{}{"name": "bo", "age": 3.0})).To(Succeed())
		Expect(s.IsValid(ctx)).To(BeTrue())
		Expect(s.Values()).To(Equal(map[string]interface{}{"name": "bo", "age": 3.0}))
	})

	It("keys messages by field", func() {
		Expect(s.SetData(map[string]interface{}{"name": ""})).To(Succeed())
		Expect(s.IsValid(ctx)).To(BeFalse())
		Expect(s.Messages()).To(HaveKey("name"))
		Expect(s.Messages()).To(HaveKeyWithValue("age", HaveKey("required")))
	})

	It("requires only grouped properties", func() {
		Expect(s.SetValidationGroup(inputfilter.ValidationGroup{Fields: []string{"name"}})).To(Succeed())
		Expect(s.SetData(map[string]interface{}{"name": "bo"})).To(Succeed())
		Expect(s.IsValid(ctx)).To(BeTrue())
		Expect(s.Values()).To(Equal(map[string]interface{}{"name": "bo"}))
	})

	It("errors for ungrouped properties", func() {
		err := s.SetValidationGroup(inputfilter.ValidationGroup{Fields: []string{"zip"}})
		Expect(err).To(Equal(inputfilter.InvalidGroupError{Field: "zip"}))
	})

	It("reports fields that are not properties as unknown", func() {
		Expect(s.SetData(map[string]interface{}{"name": "bo", "age": 1.0, "zip": "x"})).To(Succeed())
		Expect(s.Unknown()).To(Equal(map[string]interface{}{"zip": "x"}))
	})

	It("clones without state", func() {
		Expect(s.SetData(map[string]interface{}{"zip": "x"})).To(Succeed())
		c := inputfilter.Fresh(s).(*inputfilter.JSONSchema)
		Expect(c.HasUnknown()).To(BeFalse())
	})

	It("errors for invalid documents", func() {
		_, err := inputfilter.NewJSONSchema(map[string]interface{}{"type": 5.0})
		Expect(err).To(HaveOccurred())
	})
})
