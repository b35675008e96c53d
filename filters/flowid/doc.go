/*
Package flowid provides the flow id of a request, used to correlate the
logs of the services taking part in serving it.

The driver records a flow id for every request before the filters are
evaluated: when configured to reuse ids, it accepts a valid id from the
X-Flow-Id request header, and generates a new one otherwise. Filters
extract it with Get.

The standard generator creates random ids of a configurable length from a
64 character alphabet. The ULID generator creates lexicographically
sortable ids, see https://github.com/ulid/spec, and the UUID generator
random version 4 UUIDs.
*/
package flowid
