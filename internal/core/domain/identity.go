package domain

import "unique"

// Identity is the cache key of an operation: a value object wrapping an interned string derived from
// the request identity and the canonical form of the bound variables.
// Two operations with equal identities are the same cache entry.
type Identity struct {
	h unique.Handle[string]
}

// NewIdentity interns s as an Identity.
func NewIdentity(s string) Identity {
	return Identity{
		h: unique.Make(s),
	}
}

// String returns the underlying string value.
func (id Identity) String() string {
	if id.IsZero() {
		return ""
	}
	return id.h.Value()
}

// IsZero reports whether the identity was never set.
func (id Identity) IsZero() bool {
	var zero unique.Handle[string]
	return id.h == zero
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	id.h = unique.Make(string(text))
	return nil
}
