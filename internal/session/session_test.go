package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/flare-heat-flux/internal/calculator"
	"github.com/couchcryptid/flare-heat-flux/internal/domain"
	"github.com/couchcryptid/flare-heat-flux/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type countingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPublisher) PublishReport(_ context.Context, _ domain.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) PublishReport(_ context.Context, _ domain.Report) error {
	p.started <- struct{}{}
	<-p.release
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, capacity int, ttl time.Duration, clk clockwork.Clock) (*Store, *observability.Metrics, *countingPublisher) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	pub := &countingPublisher{}
	calc := calculator.New(pub, discardLogger(), metrics)
	return NewStore(StoreConfig{Capacity: capacity, TTL: ttl, Clock: clk}, calc, discardLogger(), metrics), metrics, pub
}

// --- Session tests ---

func TestSession_StartsWithDefaults(t *testing.T) {
	store, _, _ := newTestStore(t, 10, time.Hour, nil)
	sess, err := store.Create()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultInputs(), sess.Inputs())
	assert.NotEmpty(t, sess.ID)
}

func TestSession_ApplyValidEdits(t *testing.T) {
	store, _, _ := newTestStore(t, 10, time.Hour, nil)
	sess, err := store.Create()
	require.NoError(t, err)

	ok, err := sess.Apply(FieldFlowRate, "200")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sess.Apply(FieldHeatContent, "500.5")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sess.Apply(FieldRadFractionPct, "100")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, domain.FlareInputs{FlowRate: 200, HeatContent: 500.5, RadFraction: 1.0}, sess.Inputs())
}

func TestSession_InvalidEditRetainsPriorValue(t *testing.T) {
	store, metrics, _ := newTestStore(t, 10, time.Hour, nil)
	sess, err := store.Create()
	require.NoError(t, err)

	for _, tc := range []struct {
		field Field
		raw   string
	}{
		{FieldRadFractionPct, "101"},
		{FieldRadFractionPct, "0"},
		{FieldFlowRate, "-1"},
		{FieldFlowRate, ""},
		{FieldHeatContent, "lots"},
	} {
		ok, err := sess.Apply(tc.field, tc.raw)
		assert.False(t, ok, "%s=%q", tc.field, tc.raw)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	assert.Equal(t, domain.DefaultInputs(), sess.Inputs())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.InputRejections.WithLabelValues(string(FieldRadFractionPct))))
}

func TestSession_OverflowingEditIsRejected(t *testing.T) {
	store, metrics, _ := newTestStore(t, 10, time.Hour, nil)
	sess, err := store.Create()
	require.NoError(t, err)

	ok, err := sess.Apply(FieldFlowRate, "1e306")
	assert.False(t, ok)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "heat_release must be finite")
	assert.Equal(t, domain.DefaultInputs(), sess.Inputs())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InputRejections.WithLabelValues(string(FieldFlowRate))))

	r, err := sess.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultInputs(), r.Inputs)
}

func TestSession_SlowPublishDoesNotBlockEdits(t *testing.T) {
	pub := &blockingPublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	metrics := observability.NewMetricsForTesting()
	calc := calculator.New(pub, discardLogger(), metrics)
	store := NewStore(StoreConfig{Capacity: 10, TTL: time.Hour}, calc, discardLogger(), metrics)

	sess, err := store.Create()
	require.NoError(t, err)

	reportDone := make(chan error, 1)
	go func() {
		_, err := sess.Report(context.Background())
		reportDone <- err
	}()
	<-pub.started

	editDone := make(chan domain.FlareInputs, 1)
	go func() {
		_, _ = sess.Apply(FieldHeatContent, "900")
		editDone <- sess.Inputs()
	}()

	select {
	case in := <-editDone:
		assert.Equal(t, 900.0, in.HeatContent)
	case <-time.After(time.Second):
		t.Fatal("edit blocked behind an in-flight publish")
	}

	close(pub.release)
	require.NoError(t, <-reportDone)
}

func TestSession_UnknownField(t *testing.T) {
	store, _, _ := newTestStore(t, 10, time.Hour, nil)
	sess, err := store.Create()
	require.NoError(t, err)

	ok, err := sess.Apply("windSpeed", "5")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSession_ReportMemoizesCurrentInputs(t *testing.T) {
	store, metrics, pub := newTestStore(t, 10, time.Hour, nil)
	sess, err := store.Create()
	require.NoError(t, err)
	ctx := context.Background()

	r1, err := sess.Report(ctx)
	require.NoError(t, err)
	r2, err := sess.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, pub.calls)

	// Re-entering the same value keeps the memo valid.
	_, err = sess.Apply(FieldFlowRate, "150")
	require.NoError(t, err)
	_, err = sess.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)

	_, err = sess.Apply(FieldFlowRate, "300")
	require.NoError(t, err)
	r3, err := sess.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pub.calls)
	assert.NotEqual(t, r1.ID, r3.ID)
	assert.InEpsilon(t, 2*r1.HeatRelease.KW, r3.HeatRelease.KW, 1e-12)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ReportCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ReportCache.WithLabelValues("miss")))
}

func TestSession_ConcurrentEditsLastWins(t *testing.T) {
	store, _, _ := newTestStore(t, 10, time.Hour, nil)
	sess, err := store.Create()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = sess.Apply(FieldFlowRate, "100")
			_, _ = sess.Report(context.Background())
		}()
	}
	wg.Wait()

	_, err = sess.Apply(FieldFlowRate, "175")
	require.NoError(t, err)
	r, err := sess.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 175.0, r.Inputs.FlowRate)
}
