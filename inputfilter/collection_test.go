package inputfilter_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lithictech/go-contentvalidation/inputfilter"
)

// submittedGroupsOnly rejects validation groups naming fields its data does not have.
type submittedGroupsOnly struct {
	*inputfilter.InputFilter
	data map[string]interface{}
}

func newSubmittedGroupsOnly() *submittedGroupsOnly {
	return &submittedGroupsOnly{InputFilter: inputfilter.New(
		inputfilter.NewInput("foo").WithRequired(false),
		inputfilter.NewInput("bar").WithRequired(false),
	)}
}

func (s *submittedGroupsOnly) SetData(data interface{}) error {
	s.data, _ = data.(map[string]interface{})
	return s.InputFilter.SetData(data)
}

func (s *submittedGroupsOnly) SetValidationGroup(group inputfilter.ValidationGroup) error {
	for _, f := range group.Fields {
		if _, ok := s.data[f]; s.data != nil && !ok {
			return inputfilter.InvalidGroupError{Field: f}
		}
	}
	return s.InputFilter.SetValidationGroup(group)
}

func (s *submittedGroupsOnly) Clone() inputfilter.Schema { return newSubmittedGroupsOnly() }

var _ = Describe("CollectionInputFilter", func() {
	ctx := context.Background()
	var c *inputfilter.CollectionInputFilter

	BeforeEach(func() {
		c = inputfilter.NewCollection(inputfilter.New(
			inputfilter.NewInput("foo"),
			inputfilter.NewInput("bar").WithRequired(false).WithFilters(inputfilter.ToInt()),
		))
	})

	It("treats an empty collection as valid", func() {
		Expect(c.SetData([]interface{}{})).To(Succeed())
		Expect(c.IsValid(ctx)).To(BeTrue())
		Expect(c.Values()).To(Equal([]interface{}{}))
		Expect(c.SetData(nil)).To(Succeed())
		Expect(c.IsValid(ctx)).To(BeTrue())
	})

	It("validates every record and keys messages by record", func() {
		Expect(c.SetData([]interface{}{
			map[string]interface{}{"foo": "a"},
			map[string]interface{}{"bar": "1"},
			map[string]interface{}{"foo": ""},
		})).To(Succeed())
		Expect(c.IsValid(ctx)).To(BeFalse())
		Expect(c.Messages()).To(HaveLen(2))
		Expect(c.Messages()).To(HaveKey("1"))
		Expect(c.Messages()).To(HaveKey("2"))
	})

	It("returns values as a list for list data", func() {
		Expect(c.SetData([]interface{}{
			map[string]interface{}{"foo": "a", "bar": "2"},
			map[string]interface{}{"foo": "b"},
		})).To(Succeed())
		Expect(c.IsValid(ctx)).To(BeTrue())
		Expect(c.Values()).To(Equal([]interface{}{
			map[string]interface{}{"foo": "a", "bar": 2},
			map[string]interface{}{"foo": "b", "bar": nil},
		}))
	})

	It("returns values keyed like keyed data", func() {
		Expect(c.SetData(map[string]interface{}{
			"x": map[string]interface{}{"foo": "a"},
		})).To(Succeed())
		Expect(c.IsValid(ctx)).To(BeTrue())
		Expect(c.Values()).To(Equal(map[string]interface{}{
			"x": map[string]interface{}{"foo": "a", "bar": nil},
		}))
	})

	It("reports unknown fields per record", func() {
		Expect(c.SetData([]interface{}{
			map[string]interface{}{"foo": "a"},
			map[string]interface{}{"foo": "a", "baz": true},
		})).To(Succeed())
		Expect(c.IsValid(ctx)).To(BeTrue())
		Expect(c.HasUnknown()).To(BeTrue())
		Expect(c.Unknown()).To(Equal(map[string]interface{}{
			"1": map[string]interface{}{"baz": true},
		}))
	})

	It("reports records that are not objects", func() {
		Expect(c.SetData([]interface{}{"x"})).To(Succeed())
		Expect(c.IsValid(ctx)).To(BeFalse())
		Expect(c.Messages()).To(HaveKey("0"))
	})

	It("rejects scalar data", func() {
		Expect(c.SetData(5.0)).To(HaveOccurred())
	})

	Describe("validation groups", func() {
		It("applies field groups to every record", func() {
			Expect(c.SetValidationGroup(inputfilter.ValidationGroup{Fields: []string{"bar"}})).To(Succeed())
			Expect(c.SetData([]interface{}{map[string]interface{}{"bar": "3"}})).To(Succeed())
			Expect(c.IsValid(ctx)).To(BeTrue())
			Expect(c.Values()).To(Equal([]interface{}{map[string]interface{}{"bar": 3}}))
		})

		It("applies per-record groups", func() {
			Expect(c.SetValidationGroup(inputfilter.ValidationGroup{Records: map[string][]string{
				"0": {"bar"},
				"1": {"foo"},
			}})).To(Succeed())
			Expect(c.SetData([]interface{}{
				map[string]interface{}{"bar": "3"},
				map[string]interface{}{"foo": "x"},
			})).To(Succeed())
			Expect(c.IsValid(ctx)).To(BeTrue())
		})

		It("keeps the submitted record when a record rejects its group", func() {
			c = inputfilter.NewCollection(newSubmittedGroupsOnly())
			Expect(c.SetValidationGroup(inputfilter.ValidationGroup{Fields: []string{"bar"}})).To(Succeed())
			Expect(c.SetData([]interface{}{
				map[string]interface{}{"bar": "3"},
				map[string]interface{}{"foo": "x"},
			})).To(Succeed())
			Expect(c.IsValid(ctx)).To(BeFalse())
			Expect(c.Messages()).To(HaveKey("1"))
			Expect(c.Messages()).ToNot(HaveKey("0"))
			Expect(c.Values()).To(HaveLen(2))
			Expect(c.Values().([]interface{})[1]).To(Equal(map[string]interface{}{"foo": "x"}))
		})

		It("validates group names against the record schema", func() {
			err := c.SetValidationGroup(inputfilter.ValidationGroup{Records: map[string][]string{"0": {"nope"}}})
			Expect(err).To(Equal(inputfilter.InvalidGroupError{Field: "nope"}))
		})
	})

	It("clones to an empty collection with the same record schema", func() {
		Expect(c.SetData([]interface{}{map[string]interface{}{}})).To(Succeed())
		clone := inputfilter.Fresh(c).(*inputfilter.CollectionInputFilter)
		Expect(clone.RecordSchema()).To(BeIdenticalTo(c.RecordSchema()))
		Expect(clone.IsValid(ctx)).To(BeTrue())
	})
})
