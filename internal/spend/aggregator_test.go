package spend

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/user/ai-spend-tracker/internal/provider"
)

type stubProvider struct {
	id        string
	amount    float64
	failTimes int
	failKind  provider.ErrorKind
	delay     time.Duration
	calls     atomic.Int32
}

func (s *stubProvider) ID() string          { return s.id }
func (s *stubProvider) DisplayName() string { return s.id }
func (s *stubProvider) SupportsSpend() bool { return true }

func (s *stubProvider) FetchSpend(ctx context.Context, cred provider.Credential, windowDays int) (*provider.SpendRecord, error) {
	n := s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if int(n) <= s.failTimes {
		return nil, provider.NewError(s.id, s.failKind, errors.New("stubbed failure"))
	}
	return &provider.SpendRecord{
		Provider:  s.id,
		Amount:    provider.Ptr(s.amount),
		Currency:  "USD",
		FetchedAt: time.Now().UTC(),
	}, nil
}

type stubCreds struct {
	ids []string
}

func (s *stubCreds) Providers() []string { return s.ids }

func (s *stubCreds) Resolve(id string) (provider.Credential, bool) {
	return provider.Credential{Key: "test-key-" + id}, true
}

type stubStore struct {
	entry  *Entry
	puts   int
	putErr error
}

func (s *stubStore) Get() (*Entry, bool) {
	if s.entry == nil {
		return nil, false
	}
	return s.entry, true
}

func (s *stubStore) Put(snap Snapshot, ttl time.Duration) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.entry = &Entry{Snapshot: snap, TTL: ttl, StoredAt: time.Now().UTC()}
	return nil
}

func newTestRegistry(t *testing.T, providers ...*stubProvider) *provider.Registry {
	t.Helper()
	r := provider.NewRegistry()
	for _, p := range providers {
		require.NoError(t, r.Register(p))
	}
	return r
}

func testOpts() Options {
	return Options{
		WindowDays: 30,
		TTL:        5 * time.Minute,
		Retry:      RetryPolicy{Attempts: 3, InitialDelay: time.Millisecond, Backoff: 2.0},
	}
}

func TestNew_Defaults(t *testing.T) {
	agg := New(provider.NewRegistry(), &stubCreds{}, nil, Options{})

	require.Equal(t, 30, agg.opts.WindowDays)
	require.Equal(t, 5*time.Minute, agg.opts.TTL)
	require.Equal(t, 1, agg.opts.Retry.Attempts)
	require.Equal(t, time.Second, agg.opts.Retry.InitialDelay)
	require.Equal(t, 1.0, agg.opts.Retry.Backoff)
}

func TestGetSpend_NoProviders(t *testing.T) {
	store := &stubStore{}
	agg := New(provider.NewRegistry(), &stubCreds{}, store, testOpts())

	snap, err := agg.GetSpend(context.Background(), false)
	require.Nil(t, snap)
	require.Error(t, err)
	require.Equal(t, provider.KindNoProviders, provider.KindOf(err))
	require.Zero(t, store.puts)
}

func TestGetSpend_AllProviders(t *testing.T) {
	p1 := &stubProvider{id: "openai", amount: 42.5}
	p2 := &stubProvider{id: "anthropic", amount: 22.7}
	agg := New(newTestRegistry(t, p1, p2), &stubCreds{ids: []string{"openai", "anthropic"}}, &stubStore{}, testOpts())

	snap, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, snap.Records, 2)
	require.InDelta(t, 65.2, snap.Total(), 1e-9)
	require.False(t, snap.GeneratedAt.IsZero())
}

func TestGetSpend_PartialFailure(t *testing.T) {
	p1 := &stubProvider{id: "openai", amount: 42.5}
	p2 := &stubProvider{id: "anthropic", amount: 22.7}
	p3 := &stubProvider{id: "openrouter", failTimes: 99, failKind: provider.KindAuth}
	agg := New(newTestRegistry(t, p1, p2, p3), &stubCreds{ids: []string{"openai", "anthropic", "openrouter"}}, &stubStore{}, testOpts())

	snap, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, snap.Records, 3)

	failed := snap.Records["openrouter"]
	require.Equal(t, provider.KindAuth, failed.Kind)
	require.Nil(t, failed.Amount)

	require.InDelta(t, 65.2, snap.Total(), 1e-9)
}

func TestGetSpend_ServesFreshCache(t *testing.T) {
	p1 := &stubProvider{id: "openai", amount: 42.5}
	store := &stubStore{}
	agg := New(newTestRegistry(t, p1), &stubCreds{ids: []string{"openai"}}, store, testOpts())

	first, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)
	require.EqualValues(t, 1, p1.calls.Load())
	require.Equal(t, 1, store.puts)

	second, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)
	require.EqualValues(t, 1, p1.calls.Load())
	require.Equal(t, 1, store.puts)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(b1), string(b2))
}

func TestGetSpend_ForceRefresh(t *testing.T) {
	p1 := &stubProvider{id: "openai", amount: 42.5}
	store := &stubStore{}
	agg := New(newTestRegistry(t, p1), &stubCreds{ids: []string{"openai"}}, store, testOpts())

	_, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)

	_, err = agg.GetSpend(context.Background(), true)
	require.NoError(t, err)
	require.EqualValues(t, 2, p1.calls.Load())
	require.Equal(t, 2, store.puts)
}

func TestGetSpend_StaleCacheRefetches(t *testing.T) {
	p1 := &stubProvider{id: "openai", amount: 42.5}
	store := &stubStore{
		entry: &Entry{
			Snapshot: Snapshot{GeneratedAt: time.Now().UTC().Add(-10 * time.Minute)},
			TTL:      5 * time.Minute,
			StoredAt: time.Now().UTC().Add(-10 * time.Minute),
		},
	}
	agg := New(newTestRegistry(t, p1), &stubCreds{ids: []string{"openai"}}, store, testOpts())

	_, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)
	require.EqualValues(t, 1, p1.calls.Load())
}

func TestGetSpend_DeadlineBecomesTimeoutRecord(t *testing.T) {
	fast := &stubProvider{id: "openai", amount: 42.5}
	slow := &stubProvider{id: "anthropic", amount: 22.7, delay: 500 * time.Millisecond}
	agg := New(newTestRegistry(t, fast, slow), &stubCreds{ids: []string{"openai", "anthropic"}}, &stubStore{}, testOpts())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	snap, err := agg.GetSpend(ctx, false)
	require.NoError(t, err)
	require.Len(t, snap.Records, 2)

	ok := snap.Records["openai"]
	require.True(t, ok.OK())
	require.NotNil(t, ok.Amount)

	timedOut := snap.Records["anthropic"]
	require.Equal(t, provider.KindTimeout, timedOut.Kind)
	require.Nil(t, timedOut.Amount)
}

func TestGetSpend_RetriesTransient(t *testing.T) {
	p1 := &stubProvider{id: "openai", amount: 42.5, failTimes: 1, failKind: provider.KindTransient}
	agg := New(newTestRegistry(t, p1), &stubCreds{ids: []string{"openai"}}, &stubStore{}, testOpts())

	snap, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)
	require.EqualValues(t, 2, p1.calls.Load())
	require.True(t, snap.Records["openai"].OK())
}

func TestGetSpend_RetriesExhausted(t *testing.T) {
	p1 := &stubProvider{id: "openai", failTimes: 99, failKind: provider.KindTransient}
	agg := New(newTestRegistry(t, p1), &stubCreds{ids: []string{"openai"}}, &stubStore{}, testOpts())

	snap, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)
	require.EqualValues(t, 3, p1.calls.Load())
	require.Equal(t, provider.KindTransient, snap.Records["openai"].Kind)
}

func TestGetSpend_AuthNotRetried(t *testing.T) {
	p1 := &stubProvider{id: "openai", failTimes: 99, failKind: provider.KindAuth}
	agg := New(newTestRegistry(t, p1), &stubCreds{ids: []string{"openai"}}, &stubStore{}, testOpts())

	snap, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)
	require.EqualValues(t, 1, p1.calls.Load())
	require.Equal(t, provider.KindAuth, snap.Records["openai"].Kind)
}

func TestGetSpend_UnregisteredProvider(t *testing.T) {
	p1 := &stubProvider{id: "openai", amount: 42.5}
	agg := New(newTestRegistry(t, p1), &stubCreds{ids: []string{"openai", "ghost"}}, &stubStore{}, testOpts())

	snap, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, provider.KindUnsupported, snap.Records["ghost"].Kind)
	require.True(t, snap.Records["openai"].OK())
}

func TestGetSpend_CacheWriteError(t *testing.T) {
	p1 := &stubProvider{id: "openai", amount: 42.5}
	store := &stubStore{putErr: errors.New("disk full")}
	agg := New(newTestRegistry(t, p1), &stubCreds{ids: []string{"openai"}}, store, testOpts())

	snap, err := agg.GetSpend(context.Background(), false)
	require.Error(t, err)
	require.Equal(t, provider.KindCacheWrite, provider.KindOf(err))
	require.NotNil(t, snap)
	require.True(t, snap.Records["openai"].OK())
}

func TestGetSpend_StaleAmountNotCarriedByDefault(t *testing.T) {
	p1 := &stubProvider{id: "openai", failTimes: 99, failKind: provider.KindAuth}
	store := &stubStore{
		entry: &Entry{
			Snapshot: Snapshot{
				GeneratedAt: time.Now().UTC().Add(-10 * time.Minute),
				Records: map[string]provider.SpendRecord{
					"openai": {Provider: "openai", Amount: provider.Ptr(10.0), Currency: "USD", FetchedAt: time.Now().UTC().Add(-10 * time.Minute)},
				},
			},
			TTL:      5 * time.Minute,
			StoredAt: time.Now().UTC().Add(-10 * time.Minute),
		},
	}
	agg := New(newTestRegistry(t, p1), &stubCreds{ids: []string{"openai"}}, store, testOpts())

	snap, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)

	rec := snap.Records["openai"]
	require.Equal(t, provider.KindAuth, rec.Kind)
	require.Nil(t, rec.Amount)
}

func TestGetSpend_CarryStale(t *testing.T) {
	fetchedAt := time.Now().UTC().Add(-10 * time.Minute)
	p1 := &stubProvider{id: "openai", failTimes: 99, failKind: provider.KindAuth}
	p2 := &stubProvider{id: "anthropic", amount: 5.0}
	store := &stubStore{
		entry: &Entry{
			Snapshot: Snapshot{
				GeneratedAt: fetchedAt,
				Records: map[string]provider.SpendRecord{
					"openai": {Provider: "openai", Amount: provider.Ptr(10.0), Currency: "USD", FetchedAt: fetchedAt},
				},
			},
			TTL:      5 * time.Minute,
			StoredAt: fetchedAt,
		},
	}

	opts := testOpts()
	opts.CarryStale = true
	agg := New(newTestRegistry(t, p1, p2), &stubCreds{ids: []string{"openai", "anthropic"}}, store, opts)

	snap, err := agg.GetSpend(context.Background(), false)
	require.NoError(t, err)

	carried := snap.Records["openai"]
	require.Equal(t, provider.KindAuth, carried.Kind)
	require.NotNil(t, carried.Amount)
	require.InDelta(t, 10.0, *carried.Amount, 1e-9)
	require.Equal(t, fetchedAt, carried.FetchedAt)

	require.InDelta(t, 5.0, snap.Total(), 1e-9)
}
