package spend

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/user/ai-spend-tracker/internal/provider"
)

const DefaultCurrency = "USD"

// Snapshot is one aggregation run: a record per configured provider plus the
// time the run finished. Totals and currency are derived, never stored, so a
// snapshot loaded from cache can not disagree with its own records.
type Snapshot struct {
	GeneratedAt time.Time
	Records     map[string]provider.SpendRecord
}

func (s Snapshot) sortedIDs() []string {
	ids := lo.Keys(s.Records)
	sort.Strings(ids)
	return ids
}

// Total sums the amounts of error-free records. Iteration is in sorted key
// order so repeated serializations of the same snapshot are byte-identical.
func (s Snapshot) Total() float64 {
	total := 0.0
	for _, id := range s.sortedIDs() {
		r := s.Records[id]
		if r.OK() && r.Amount != nil {
			total += *r.Amount
		}
	}
	return total
}

func (s Snapshot) Currency() string {
	for _, id := range s.sortedIDs() {
		r := s.Records[id]
		if r.Amount != nil && r.Currency != "" {
			return r.Currency
		}
	}
	return DefaultCurrency
}

type recordJSON struct {
	Amount    *float64   `json:"amount"`
	Error     *string    `json:"error"`
	FetchedAt *time.Time `json:"fetched_at"`
}

type snapshotJSON struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Total       float64               `json:"total"`
	Currency    string                `json:"currency"`
	Providers   map[string]recordJSON `json:"providers"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		GeneratedAt: s.GeneratedAt,
		Total:       s.Total(),
		Currency:    s.Currency(),
		Providers:   make(map[string]recordJSON, len(s.Records)),
	}
	for id, r := range s.Records {
		rec := recordJSON{Amount: r.Amount}
		if r.Kind != "" {
			rec.Error = provider.Ptr(string(r.Kind))
		}
		if !r.FetchedAt.IsZero() {
			t := r.FetchedAt
			rec.FetchedAt = &t
		}
		out.Providers[id] = rec
	}
	return json.Marshal(out)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	s.GeneratedAt = in.GeneratedAt
	s.Records = make(map[string]provider.SpendRecord, len(in.Providers))
	for id, rec := range in.Providers {
		r := provider.SpendRecord{Provider: id, Amount: rec.Amount}
		if rec.Error != nil {
			r.Kind = provider.ErrorKind(*rec.Error)
		}
		if rec.FetchedAt != nil {
			r.FetchedAt = *rec.FetchedAt
		}
		if rec.Amount != nil {
			r.Currency = in.Currency
		}
		s.Records[id] = r
	}
	return nil
}

// Entry is a snapshot at rest, wrapped with the TTL it was stored under.
type Entry struct {
	Snapshot Snapshot
	TTL      time.Duration
	StoredAt time.Time
}

// FreshAt reports whether the entry is still within its TTL at the given time.
func (e *Entry) FreshAt(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

type entryJSON struct {
	Snapshot   Snapshot  `json:"snapshot"`
	TTLSeconds int64     `json:"ttl_seconds"`
	StoredAt   time.Time `json:"stored_at"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Snapshot:   e.Snapshot,
		TTLSeconds: int64(e.TTL / time.Second),
		StoredAt:   e.StoredAt,
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var in entryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.Snapshot = in.Snapshot
	e.TTL = time.Duration(in.TTLSeconds) * time.Second
	e.StoredAt = in.StoredAt
	return nil
}
