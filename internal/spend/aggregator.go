package spend

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/user/ai-spend-tracker/internal/provider"
)

// CredentialSource yields the set of configured provider IDs and their
// credentials. The aggregator never reads config files itself.
type CredentialSource interface {
	Providers() []string
	Resolve(id string) (provider.Credential, bool)
}

// Store caches the most recent snapshot between runs.
type Store interface {
	Get() (*Entry, bool)
	Put(snap Snapshot, ttl time.Duration) error
}

type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	Backoff      float64
}

type Options struct {
	WindowDays int
	TTL        time.Duration
	CarryStale bool
	Retry      RetryPolicy
}

type Aggregator struct {
	registry *provider.Registry
	creds    CredentialSource
	store    Store
	opts     Options
}

func New(registry *provider.Registry, creds CredentialSource, store Store, opts Options) *Aggregator {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 30
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Retry.Attempts < 1 {
		opts.Retry.Attempts = 1
	}
	if opts.Retry.InitialDelay <= 0 {
		opts.Retry.InitialDelay = time.Second
	}
	if opts.Retry.Backoff < 1 {
		opts.Retry.Backoff = 1
	}
	return &Aggregator{registry: registry, creds: creds, store: store, opts: opts}
}

// GetSpend returns the current spend snapshot, serving from cache while it is
// fresh unless force is set. A failed cache write still returns the snapshot,
// alongside a CacheWriteError the caller may downgrade to a warning.
func (a *Aggregator) GetSpend(ctx context.Context, force bool) (*Snapshot, error) {
	ids := a.creds.Providers()
	if len(ids) == 0 {
		return nil, provider.NewError("", provider.KindNoProviders, errors.New("no providers configured"))
	}

	var prev *Entry
	if a.store != nil {
		if entry, ok := a.store.Get(); ok {
			prev = entry
			if !force && entry.FreshAt(time.Now().UTC()) {
				log.Debugf("serving cached snapshot from %s", entry.StoredAt.Format(time.RFC3339))
				snap := entry.Snapshot
				return &snap, nil
			}
		}
	}

	snap := a.fetchAll(ctx, ids)

	if a.opts.CarryStale && prev != nil {
		a.carryStaleAmounts(snap, prev)
	}

	if a.store != nil {
		if err := a.store.Put(*snap, a.opts.TTL); err != nil {
			log.Warnf("cache write failed: %v", err)
			return snap, provider.NewError("", provider.KindCacheWrite, err)
		}
	}

	return snap, nil
}

// fetchAll queries every configured provider concurrently. A provider that
// fails, or that the deadline cuts off, becomes an error record; it never
// aborts the others.
func (a *Aggregator) fetchAll(ctx context.Context, ids []string) *Snapshot {
	results := make(chan provider.SpendRecord, len(ids))
	for _, id := range ids {
		go func(id string) {
			results <- a.fetchOne(ctx, id)
		}(id)
	}

	records := make(map[string]provider.SpendRecord, len(ids))
collect:
	for range ids {
		select {
		case rec := <-results:
			records[rec.Provider] = rec
		case <-ctx.Done():
			break collect
		}
	}

	for _, id := range ids {
		if _, ok := records[id]; !ok {
			records[id] = provider.SpendRecord{
				Provider: id,
				Kind:     provider.KindTimeout,
				Detail:   "deadline expired before fetch completed",
			}
		}
	}

	return &Snapshot{GeneratedAt: time.Now().UTC(), Records: records}
}

func (a *Aggregator) fetchOne(ctx context.Context, id string) provider.SpendRecord {
	p, ok := a.registry.Get(id)
	if !ok {
		return provider.SpendRecord{
			Provider: id,
			Kind:     provider.KindUnsupported,
			Detail:   "no adapter registered",
		}
	}

	cred, ok := a.creds.Resolve(id)
	if !ok {
		return provider.SpendRecord{
			Provider: id,
			Kind:     provider.KindAuth,
			Detail:   "no credential resolved",
		}
	}

	rec, err := a.fetchWithRetry(ctx, p, cred)
	if err != nil {
		log.Debugf("fetch %s failed: %v", id, err)
		return provider.SpendRecord{
			Provider: id,
			Kind:     provider.KindOf(err),
			Detail:   err.Error(),
		}
	}

	rec.Provider = id
	return *rec
}

func (a *Aggregator) fetchWithRetry(ctx context.Context, p provider.Provider, cred provider.Credential) (*provider.SpendRecord, error) {
	delay := a.opts.Retry.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= a.opts.Retry.Attempts; attempt++ {
		rec, err := p.FetchSpend(ctx, cred, a.opts.WindowDays)
		if err == nil {
			return rec, nil
		}
		lastErr = err

		if !provider.KindOf(err).Retryable() || attempt == a.opts.Retry.Attempts {
			break
		}

		log.Debugf("retrying %s in %s (attempt %d/%d): %v", p.ID(), delay, attempt, a.opts.Retry.Attempts, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * a.opts.Retry.Backoff)
	}

	return nil, lastErr
}

// carryStaleAmounts copies the last known amount into fresh error records so
// the table can show something next to the error. Carried amounts keep their
// original fetch time and never count toward the total.
func (a *Aggregator) carryStaleAmounts(snap *Snapshot, prev *Entry) {
	for id, rec := range snap.Records {
		if rec.OK() || rec.Amount != nil {
			continue
		}
		old, ok := prev.Snapshot.Records[id]
		if !ok || old.Amount == nil {
			continue
		}
		rec.Amount = old.Amount
		rec.Currency = old.Currency
		rec.FetchedAt = old.FetchedAt
		snap.Records[id] = rec
	}
}
