package filters

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies rejections.
type Kind int

const (
	// KindNotFound means that a filter did not match the request.
	KindNotFound Kind = iota

	// KindMethodNotAllowed means that the request method was not
	// accepted.
	KindMethodNotAllowed

	// KindMissingHeader means that a required request header was not
	// present.
	KindMissingHeader

	// KindInvalidHeader means that a request header had an unexpected
	// value.
	KindInvalidHeader

	// KindMissingExtension means that a fact expected in the extension
	// store was not recorded.
	KindMissingExtension

	// KindForbidden means that the request was not allowed to proceed.
	KindForbidden

	// KindCustom wraps an application error.
	KindCustom
)

// Rejection is the error returned by failing filters.
//
// A Rejection is either a single rejection of a Kind, or the combination
// of two rejections created by Combine, when all alternatives of an Or
// failed.
type Rejection struct {
	kind   Kind
	name   string
	status int
	cause  error

	left, right *Rejection
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindMissingHeader:
		return "missing_header"
	case KindInvalidHeader:
		return "invalid_header"
	case KindMissingExtension:
		return "missing_extension"
	case KindForbidden:
		return "forbidden"
	default:
		return "custom"
	}
}

// NotFound creates a rejection for filters that did not match.
func NotFound() *Rejection {
	return &Rejection{kind: KindNotFound}
}

// MethodNotAllowed creates a rejection for an unexpected request method.
func MethodNotAllowed(method string) *Rejection {
	return &Rejection{kind: KindMethodNotAllowed, name: method}
}

// MissingHeader creates a rejection for a missing request header.
func MissingHeader(name string) *Rejection {
	return &Rejection{kind: KindMissingHeader, name: http.CanonicalHeaderKey(name)}
}

// InvalidHeader creates a rejection for a request header with an
// unexpected value. The cause is optional.
func InvalidHeader(name string, cause error) *Rejection {
	return &Rejection{kind: KindInvalidHeader, name: http.CanonicalHeaderKey(name), cause: cause}
}

// MissingExtension creates a rejection for a fact missing from the
// extension store.
func MissingExtension(name string) *Rejection {
	return &Rejection{kind: KindMissingExtension, name: name}
}

// Forbidden creates a rejection for requests that must not proceed.
func Forbidden(reason string) *Rejection {
	return &Rejection{kind: KindForbidden, name: reason}
}

// Custom wraps an application error. The response status of custom
// rejections is 500, unless set with CustomStatus.
func Custom(err error) *Rejection {
	return &Rejection{kind: KindCustom, cause: err}
}

// CustomStatus wraps an application error with an explicit response
// status.
func CustomStatus(status int, err error) *Rejection {
	return &Rejection{kind: KindCustom, status: status, cause: err}
}

// AsRejection returns the rejection in the chain of err, or wraps err as
// a custom rejection. It returns nil for a nil error.
func AsRejection(err error) *Rejection {
	if err == nil {
		return nil
	}

	var r *Rejection
	if errors.As(err, &r) {
		return r
	}

	return Custom(err)
}

// Combine returns the combination of two rejections. When one of them is
// nil, it returns the other one.
func Combine(a, b *Rejection) *Rejection {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}

	return &Rejection{left: a, right: b}
}

func (r *Rejection) combined() bool {
	return r.left != nil
}

// Preferred returns the rejection that represents r towards the client.
// For single rejections, it is r itself.
func (r *Rejection) Preferred() *Rejection {
	if !r.combined() {
		return r
	}

	a, b := r.left.Preferred(), r.right.Preferred()
	switch {
	case b.kind == KindNotFound:
		return a
	case a.kind == KindNotFound:
		return b
	case b.kind == KindMethodNotAllowed:
		return a
	case a.kind == KindMethodNotAllowed:
		return b
	case a.Status() < b.Status():
		return b
	default:
		return a
	}
}

// Kind returns the kind of the preferred rejection.
func (r *Rejection) Kind() Kind {
	return r.Preferred().kind
}

// Name returns the subject of the preferred rejection, e.g. the name of
// a missing header.
func (r *Rejection) Name() string {
	return r.Preferred().name
}

// Status returns the HTTP status code of the preferred rejection.
func (r *Rejection) Status() int {
	p := r.Preferred()
	switch p.kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindMissingHeader, KindInvalidHeader:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindCustom:
		if p.status != 0 {
			return p.status
		}

		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Rejections returns the single rejections r consists of, left to right.
func (r *Rejection) Rejections() []*Rejection {
	if !r.combined() {
		return []*Rejection{r}
	}

	return append(r.left.Rejections(), r.right.Rejections()...)
}

func (r *Rejection) Error() string {
	p := r.Preferred()
	switch p.kind {
	case KindNotFound:
		return "not found"
	case KindMethodNotAllowed:
		return fmt.Sprintf("method not allowed: %s", p.name)
	case KindMissingHeader:
		return fmt.Sprintf("missing request header %q", p.name)
	case KindInvalidHeader:
		if p.cause != nil {
			return fmt.Sprintf("invalid request header %q: %v", p.name, p.cause)
		}

		return fmt.Sprintf("invalid request header %q", p.name)
	case KindMissingExtension:
		return fmt.Sprintf("missing request extension %s", p.name)
	case KindForbidden:
		if p.name != "" {
			return fmt.Sprintf("forbidden: %s", p.name)
		}

		return "forbidden"
	default:
		if p.cause != nil {
			return p.cause.Error()
		}

		return "unhandled rejection"
	}
}

// Unwrap returns the cause of a single rejection, or both sides of a
// combined rejection.
func (r *Rejection) Unwrap() []error {
	if r.combined() {
		return []error{r.left, r.right}
	}

	if r.cause != nil {
		return []error{r.cause}
	}

	return nil
}

// Is reports whether target is a single rejection of the same kind.
// When target has a name, the names need to match, too. This allows
// checks like:
//
//	errors.Is(err, filters.MissingHeader("Authorization"))
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	if !ok || t.combined() || r.combined() {
		return false
	}

	return t.kind == r.kind && (t.name == "" || t.name == r.name)
}
