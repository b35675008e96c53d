package filters

type and struct {
	left, right Filter
	infallible  bool
}

type or struct {
	left, right Filter
	infallible  bool
}

type mapped struct {
	filter Filter
	fn     func(Tuple) Tuple
}

type andThen struct {
	filter Filter
	fn     func(*Context, Tuple) (Tuple, error)
}

type orElse struct {
	filter     Filter
	fn         func(*Context, *Rejection) (Tuple, error)
	infallible bool
}

// And creates a filter evaluating left and then right on the same
// context. When left fails, right is not evaluated. On success, it
// extracts the values of left followed by the values of right.
func And(left, right Filter) Filter {
	return &and{
		left:       left,
		right:      right,
		infallible: IsInfallible(left) && IsInfallible(right),
	}
}

func (f *and) Filter(c *Context) (Tuple, error) {
	lt, err := f.left.Filter(c)
	if err != nil {
		return nil, err
	}

	if err := c.Context().Err(); err != nil {
		return nil, err
	}

	rt, err := f.right.Filter(c)
	if err != nil {
		return nil, err
	}

	return Concat(lt, rt), nil
}

func (f *and) Infallible() bool { return f.infallible }

// Or creates a filter evaluating left, and when left fails, evaluating
// right on the same context. When left succeeds, right is not evaluated.
// When both fail, the rejections are combined.
//
// The two sides are expected to extract the same shape of values, the
// caller needs to reconcile them otherwise.
func Or(left, right Filter) Filter {
	return &or{
		left:       left,
		right:      right,
		infallible: IsInfallible(left) || IsInfallible(right),
	}
}

func (f *or) Filter(c *Context) (Tuple, error) {
	t, err := f.left.Filter(c)
	if err == nil || IsAbandoned(err) {
		return t, err
	}

	t, rerr := f.right.Filter(c)
	if rerr == nil || IsAbandoned(rerr) {
		return t, rerr
	}

	return nil, Combine(AsRejection(err), AsRejection(rerr))
}

func (f *or) Infallible() bool { return f.infallible }

// Map creates a filter transforming the values extracted by f with fn.
// Failures of f are returned unchanged.
func Map(f Filter, fn func(Tuple) Tuple) Filter {
	return &mapped{filter: f, fn: fn}
}

func (f *mapped) Filter(c *Context) (Tuple, error) {
	t, err := f.filter.Filter(c)
	if err != nil {
		return nil, err
	}

	return f.fn(t), nil
}

func (f *mapped) Infallible() bool { return IsInfallible(f.filter) }

// AndThen creates a filter passing the values extracted by f to fn, which
// may fail. The result of fn replaces the values of f.
func AndThen(f Filter, fn func(*Context, Tuple) (Tuple, error)) Filter {
	return &andThen{filter: f, fn: fn}
}

func (f *andThen) Filter(c *Context) (Tuple, error) {
	t, err := f.filter.Filter(c)
	if err != nil {
		return nil, err
	}

	return f.fn(c, t)
}

// OrElse creates a filter that, when f is rejected, calls fn with the
// rejection. fn may recover by returning values, or fail again.
func OrElse(f Filter, fn func(*Context, *Rejection) (Tuple, error)) Filter {
	return &orElse{filter: f, fn: fn, infallible: IsInfallible(f)}
}

// Recover creates an infallible filter that, when f is rejected, extracts
// the values returned by fn instead.
func Recover(f Filter, fn func(*Rejection) Tuple) Filter {
	return &orElse{
		filter: f,
		fn: func(_ *Context, r *Rejection) (Tuple, error) {
			return fn(r), nil
		},
		infallible: true,
	}
}

func (f *orElse) Filter(c *Context) (Tuple, error) {
	t, err := f.filter.Filter(c)
	if err == nil || IsAbandoned(err) {
		return t, err
	}

	return f.fn(c, AsRejection(err))
}

func (f *orElse) Infallible() bool { return f.infallible }

// Chain combines the filters with And, from left to right. Without
// arguments, it returns Any().
func Chain(f ...Filter) Filter {
	if len(f) == 0 {
		return Any()
	}

	c := f[0]
	for _, fi := range f[1:] {
		c = And(c, fi)
	}

	return c
}

// First combines the filters with Or, from left to right. Without
// arguments, it returns a filter rejecting with NotFound.
func First(f ...Filter) Filter {
	if len(f) == 0 {
		return Reject(NotFound())
	}

	c := f[0]
	for _, fi := range f[1:] {
		c = Or(c, fi)
	}

	return c
}
