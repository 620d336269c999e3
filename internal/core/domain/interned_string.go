package domain

import "unique"

// InternedString wraps a unique.Handle[string]. Node paths repeat heavily
// across edges, so the path-to-node index keys on interned handles and
// comparisons stay pointer-sized.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s.
func NewInternedString(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// String returns the underlying string value.
func (is InternedString) String() string {
	var zero unique.Handle[string]
	if is.h == zero {
		return ""
	}
	return is.h.Value()
}
