package tax

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
)

type stubSource struct {
	mu    sync.Mutex
	rates map[uuid.UUID]decimal.Decimal
	err   error
	calls atomic.Int32
	gate  chan struct{}
	// ctxErr is the lookup context's error once the gate opens.
	ctxErr error
}

func (s *stubSource) LoadRate(ctx context.Context, restaurantID uuid.UUID) (decimal.Decimal, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
		s.mu.Lock()
		s.ctxErr = ctx.Err()
		s.mu.Unlock()
	}
	if s.err != nil {
		return decimal.Zero, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rate, ok := s.rates[restaurantID]
	if !ok {
		return decimal.Zero, ErrNotConfigured
	}
	return rate, nil
}

func (s *stubSource) set(id uuid.UUID, rate string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[id] = decimal.RequireFromString(rate)
}

func newStubSource() *stubSource {
	return &stubSource{rates: map[uuid.UUID]decimal.Decimal{}}
}

func TestResolverCachesWithinTTL(t *testing.T) {
	src := newStubSource()
	restaurant := uuid.New()
	src.set(restaurant, "0.0825")

	r, err := NewResolver(src, Options{TTL: time.Minute})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		rate, err := r.RateFor(context.Background(), restaurant)
		require.NoError(t, err)
		assert.Equal(t, "0.0825", rate.String())
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestResolverRefreshesAfterTTL(t *testing.T) {
	src := newStubSource()
	restaurant := uuid.New()
	src.set(restaurant, "0.0825")

	r, err := NewResolver(src, Options{TTL: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = r.RateFor(context.Background(), restaurant)
	require.NoError(t, err)

	src.set(restaurant, "0.0900")
	time.Sleep(60 * time.Millisecond)

	rate, err := r.RateFor(context.Background(), restaurant)
	require.NoError(t, err)
	assert.Equal(t, "0.09", rate.String())
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestResolverInvalidate(t *testing.T) {
	src := newStubSource()
	restaurant := uuid.New()
	src.set(restaurant, "0.05")

	r, err := NewResolver(src, Options{TTL: time.Minute})
	require.NoError(t, err)

	_, err = r.RateFor(context.Background(), restaurant)
	require.NoError(t, err)
	r.Invalidate(restaurant)
	_, err = r.RateFor(context.Background(), restaurant)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestResolverCollapsesConcurrentMisses(t *testing.T) {
	src := newStubSource()
	src.gate = make(chan struct{})
	restaurant := uuid.New()
	src.set(restaurant, "0.0825")

	r, err := NewResolver(src, Options{TTL: time.Minute})
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan Rate, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := r.RateFor(context.Background(), restaurant)
			if err == nil {
				results <- rate
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()
	close(results)

	count := 0
	for rate := range results {
		assert.Equal(t, int64(495), rate.TaxOn(6000))
		count++
	}
	assert.Equal(t, callers, count)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestResolverMissingConfigurationIsValidationError(t *testing.T) {
	r, err := NewResolver(newStubSource(), Options{})
	require.NoError(t, err)

	_, err = r.RateFor(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestResolverSourceFailureIsNotCached(t *testing.T) {
	src := newStubSource()
	src.err = errors.New("connection refused")
	restaurant := uuid.New()

	r, err := NewResolver(src, Options{TTL: time.Minute})
	require.NoError(t, err)

	_, err = r.RateFor(context.Background(), restaurant)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.CodeOf(err))

	src.err = nil
	src.set(restaurant, "0.07")
	rate, err := r.RateFor(context.Background(), restaurant)
	require.NoError(t, err)
	assert.Equal(t, "0.07", rate.String())
}

func TestNewResolverRequiresSource(t *testing.T) {
	_, err := NewResolver(nil, Options{})
	require.Error(t, err)
}

func TestResolverCallerCancelDoesNotFailOtherWaiters(t *testing.T) {
	src := newStubSource()
	src.gate = make(chan struct{})
	restaurant := uuid.New()
	src.set(restaurant, "0.0825")

	r, err := NewResolver(src, Options{TTL: time.Minute})
	require.NoError(t, err)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.RateFor(firstCtx, restaurant)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	type outcome struct {
		rate Rate
		err  error
	}
	second := make(chan outcome, 1)
	go func() {
		rate, err := r.RateFor(context.Background(), restaurant)
		second <- outcome{rate, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	err = <-firstErr
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePersistenceFailure, pkgerrors.CodeOf(err))

	close(src.gate)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "0.0825", got.rate.String())
	assert.Equal(t, int32(1), src.calls.Load())

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.NoError(t, src.ctxErr)
}

func TestResolverLookupTimeoutBoundsSharedLookup(t *testing.T) {
	r, err := NewResolver(blockingSource{}, Options{LookupTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = r.RateFor(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePersistenceFailure, pkgerrors.CodeOf(err))
}

// blockingSource waits for its context to end.
type blockingSource struct{}

func (blockingSource) LoadRate(ctx context.Context, _ uuid.UUID) (decimal.Decimal, error) {
	<-ctx.Done()
	return decimal.Zero, ctx.Err()
}
