/*
Package validator checks single request values against rule strings,
like "min=3,max=10" or "enum=draft|published".
It is what the inputfilter "rules" validator runs, and what DigitsOnly-style
inputfilter validators delegate to.

Rules are evaluated by https://github.com/rgalanakis/validator, which provides
len, min, max, nonzero and regexp. This package adds:

	intid      a non-negative integer string without leading zeros
	uuid4      a version 4 UUID, with or without dashes
	url        an absolute URI or absolute path
	enum       one of pipe-delimited choices, case-insensitive (enum=a|b)
	cenum      like enum, case-sensitive
	digits     a string of 0-9, or a non-negative integral number
	notblank   a string that is not empty once trimmed

intid, uuid4, url and digits accept an empty string when given "opt" (intid=opt);
enum and cenum when given a trailing "|opt" (enum=a|b|opt).
enum and cenum also check every element of a list of strings,
such as a decoded JSON array. Optional cannot be used with lists.

Values are what request decoding produces: strings, float64 numbers,
bools, and []interface{} lists. Rules that cannot check a value's type
fail with "unsupported type".
*/
package validator
