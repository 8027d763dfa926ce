package query

// DateRange is the window of a time dimension: a relative token the
// service understands ("today", "last 7 days") or a pair of native bounds
// serialized by the dimension's member.
type DateRange struct {
	token    string
	relative bool
	from, to any
	bounded  bool
}

// Relative passes token through unchanged.
func Relative(token string) DateRange {
	return DateRange{token: token, relative: true}
}

// Between is the inclusive window [from, to]. Bounds are usually time.Time
// values but may be anything the dimension's serializer accepts.
func Between(from, to any) DateRange {
	return DateRange{from: from, to: to, bounded: true}
}

// IsZero reports whether r is the empty DateRange{}. Relative("") is not
// zero; it is an invalid window.
func (r DateRange) IsZero() bool {
	return !r.relative && !r.bounded
}

func (r DateRange) valid() bool {
	return r.bounded || (r.relative && r.token != "")
}

// Token returns the relative token, if any.
func (r DateRange) Token() string { return r.token }

// Bounds returns the native bounds and whether r is the bounded form.
func (r DateRange) Bounds() (from, to any, ok bool) {
	return r.from, r.to, r.bounded
}
