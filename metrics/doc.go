/*
Package metrics implements collection of filter evaluation metrics.

The collected metrics include the duration of every evaluation of a filter
chain labeled with its name and outcome, the number of rejections by
rejection kind, and the duration of the served responses by status code
and method.

The Prometheus backend keeps its collectors in its own registry, unless
one is passed in the options, and exposes them over HTTP with
RegisterHandler. Void discards all measurements.
*/
package metrics
