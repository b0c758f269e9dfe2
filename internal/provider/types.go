package provider

import "time"

// Credential is the resolved auth material for one provider. The core only
// holds a read-only copy for the duration of a single fetch; resolution and
// precedence are the credential source's concern.
type Credential struct {
	Key   string `yaml:"api_key" json:"-"`
	OrgID string `yaml:"org_id,omitempty" json:"-"`
}

// SpendRecord is the normalized outcome of one provider fetch. Amount is set
// iff Kind is empty; a failed fetch carries only the error kind, unless a
// previously cached amount was carried forward for display.
type SpendRecord struct {
	Provider  string
	Amount    *float64
	Currency  string
	FetchedAt time.Time
	Kind      ErrorKind
	Detail    string
}

// OK reports whether the record holds a successful fetch.
func (r SpendRecord) OK() bool {
	return r.Kind == ""
}

// Ptr is a helper to create pointer to a value
func Ptr[T any](v T) *T {
	return &v
}
