/*
Package filters implements composable request filters.

A filter inspects the per-request Context and either extracts a Tuple of
values or fails with a rejection. Filters are values: they are created
once, typically at startup, and then evaluated for any number of
concurrent requests. A filter must not keep per-request state; anything
it needs to remember for a request lives in the request's extension
store.

Filters are combined with And, Or and Map, and the helpers built on them:

	auth := filters.Or(header.Value("Authorization"), filters.Reject(filters.Forbidden("no credentials")))
	f := filters.And(addr.Remote(), auth)

On success, f extracts Tuple{netip.AddrPort, string}: And concatenates the
tuples of both sides, and filters extracting nothing contribute nothing,
so any chain extracts a single flat tuple.

Rejections

A filter failure is a *Rejection. And returns the first rejection without
evaluating the rest of the chain. Or recovers from the rejection of its
left side by evaluating the right side, and when both fail the result is
the combination of the two rejections. The combined rejection keeps both
causes reachable with errors.Is and errors.As, and reports the status of
the preferred one: NotFound is the weakest, MethodNotAllowed the second
weakest, otherwise the higher status wins and ties keep the left side.

Infallible filters

Filters created with Infallible or Provide cannot fail: the function they
wrap returns no error. Combinators propagate this property, and
IsInfallible reports it. A driver evaluating an infallible filter treats a
failure as a broken invariant and reports ErrNever instead of a
rejection.

Cancellation

The context.Context of the request is checked between the two sides of
And. When the request was abandoned, evaluation stops with the context
error. Cancellation is not a rejection: Or and the recovering combinators
pass it through unchanged, and it can be returned even by infallible
filters.
*/
package filters
