/*
Package contentvalidation decides, for each routed request, whether its payload must be validated,
which schema validates it, and what data the handler finally sees.

A Dispatcher is configured once with per-service Settings,
the route identifier of each REST service (which decides entity vs. collection requests),
and a schema registry (usually an *inputfilter.Manager).
For each request, Dispatch:

  - classifies the request as an entity or collection request (IsCollection),
  - selects a schema name by method and collection-ness (SelectFilter),
  - merges uploaded files into entity payloads (MergeFiles),
  - wraps entity schemas so collection payloads validate record by record,
  - fires EventBeforeValidate, so subscribers can reject the request early,
  - validates the payload, restricted to submitted fields for PATCH (ValidationGroupFor),
  - rejects or merges fields the schema does not declare (UnknownFieldsDetail),
  - optionally prunes empty values (RemoveEmptyData),
  - and writes the final data back into the request's data container.

Failures are returned as *apiproblem.Problem values in the Outcome,
never as errors; errors are reserved for faults in the schema registry.
*/
package contentvalidation
