/*
Package inputfilter provides request schemas ("input filters"):
named, declarative definitions of the fields a payload may carry,
whether they are required, how their values are filtered, and how they are validated.

A Schema is stateful for a single use: set its data, validate it,
then read its messages, filtered values, and any unknown fields.
Schemas held in a registry or cache should be copied for each use with Fresh.

	f := inputfilter.New(
		inputfilter.NewInput("name").WithFilters(inputfilter.StringTrim("")),
		inputfilter.NewInput("age").WithRequired(false).WithValidators(inputfilter.Digits()),
	)
	_ = f.SetData(map[string]interface{}{"name": " bo ", "zip": "x"})
	f.IsValid(ctx)   // true
	f.Values()       // {"name": "bo", "age": nil}
	f.Unknown()      // {"zip": "x"}

Capabilities are expressed as interfaces:

  - UnknownReporter: the schema can report submitted fields it does not declare.
  - CollectionSchema: the schema already validates a list of records
    (and should not be wrapped in another collection).
  - Cloner: the schema can produce a fresh copy of itself for a new use.

Schemas can also be declared in configuration (see Spec and Builder),
and resolved by name through a Manager.
*/
package inputfilter
