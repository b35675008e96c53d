/*
Package driver evaluates filters for HTTP requests.

Evaluate is the single entry point of a filter evaluation. It takes a
request context prepared by NewContext, which records the facts known
about the request before any filter runs: the address of the connected
peer, the flow id, and whatever the configured Populate hooks add.

The Driver is an http.Handler running one filter for every request. On
success, the extracted values are passed to the configured Reply
function. On rejection, the preferred rejection of the combined ones
determines the response status. Requests abandoned by the client are
dropped without a response.

Every evaluation is measured, traced with an opentracing span tagged
with the outcome, and written to the access log.
*/
package driver
