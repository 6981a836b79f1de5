package contentvalidation

import (
	"net/http"
	"strings"

	"github.com/lithictech/go-contentvalidation/convext"
)

// IsCollection is true if a request targets a collection rather than a single entity.
// identifierName is the service's route identifier parameter; a service without one
// has no entities to tell apart, so its requests are never collection requests.
//
// A POST of nothing, or of a single object, creates an entity.
// A request with the identifier in its route params (even "0" or "") or query params targets an entity.
func IsCollection(identifierName, method string, data interface{}, routeParams map[string]string, query map[string]interface{}) bool {
	if identifierName == "" {
		return false
	}
	if strings.EqualFold(method, http.MethodPost) && (convext.Len(data) == 0 || convext.IsHashTable(data)) {
		return false
	}
	if _, ok := routeParams[identifierName]; ok {
		return false
	}
	return query[identifierName] == nil
}

// SelectFilter returns the schema name for a request, or "" if the request is not validated.
// In order of precedence:
// METHOD_COLLECTION (for collection requests), METHOD,
// nothing for DELETE and body-less methods, input_filter, and otherwise nothing.
func SelectFilter(s Settings, method string, collection, bodyless bool) string {
	method = strings.ToUpper(method)
	if collection {
		if name := s.Filters[method+CollectionSuffix]; name != "" {
			return name
		}
	}
	if name := s.Filters[method]; name != "" {
		return name
	}
	if method == http.MethodDelete || bodyless {
		return ""
	}
	return s.InputFilter
}
