package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pos-catalog/internal/metrics"
	"pos-catalog/internal/pricing/model"
)

type quoteResult struct {
	resp model.Response
	err  error
}

type quoteCall struct {
	req   model.Request
	reply chan quoteResult
}

func (c quoteCall) ok(total string) {
	c.reply <- quoteResult{resp: model.Response{TotalPrice: decimal.RequireFromString(total)}}
}

func (c quoteCall) fail(err error) { c.reply <- quoteResult{err: err} }

// fakeQuoter отдаёт каждый вызов тесту и ждёт ответа.
type fakeQuoter struct {
	calls chan quoteCall
}

func newFakeQuoter() *fakeQuoter { return &fakeQuoter{calls: make(chan quoteCall, 16)} }

func (q *fakeQuoter) Calculate(ctx context.Context, req model.Request) (model.Response, error) {
	c := quoteCall{req: req, reply: make(chan quoteResult, 1)}
	select {
	case q.calls <- c:
	case <-ctx.Done():
		return model.Response{}, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return model.Response{}, ctx.Err()
	}
}

func (q *fakeQuoter) next(t *testing.T) quoteCall {
	t.Helper()
	select {
	case c := <-q.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a price request")
		return quoteCall{}
	}
}

func (q *fakeQuoter) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-q.calls:
		t.Fatalf("unexpected price request: %+v", c.req)
	case <-time.After(50 * time.Millisecond):
	}
}

type fixture struct {
	clk    *testclock.Clock
	quoter *fakeQuoter
	reg    *prometheus.Registry
	calc   *Calculator
}

var basePkg = model.Package{ID: 1, BasePrice: decimal.RequireFromString("29.99"), Customizable: true}

func newFixture(t *testing.T, pkg model.Package) *fixture {
	t.Helper()
	f := &fixture{
		clk:    testclock.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		quoter: newFakeQuoter(),
		reg:    prometheus.NewRegistry(),
	}
	f.calc = NewCalculator(pkg, f.quoter,
		WithClock(f.clk),
		WithDebounce(DefaultDebounce),
		WithMetrics(metrics.New(f.reg)),
	)
	t.Cleanup(f.calc.Close)
	return f
}

// settle проматывает окно debounce для единственного ждущего таймера.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, f.clk.WaitAdvance(DefaultDebounce, time.Second, 1))
}

func (f *fixture) waitPrice(t *testing.T, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := f.calc.Snapshot()
		return !s.IsCalculating && s.CalculatedPrice.Equal(decimal.RequireFromString(want))
	}, 2*time.Second, 5*time.Millisecond, "price never became %s", want)
}

func (f *fixture) outcome(t *testing.T, outcome string) float64 {
	t.Helper()
	families, err := f.reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "pos_catalog_price_calculations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// apply проводит выбор через полный цикл debounce → запрос → ответ.
func (f *fixture) apply(t *testing.T, sel model.Selection, total string) {
	t.Helper()
	require.NoError(t, f.calc.RequestCalculation(sel))
	f.settle(t)
	f.quoter.next(t).ok(total)
	f.waitPrice(t, total)
}

func TestCalculatorStartsAtBasePrice(t *testing.T) {
	f := newFixture(t, basePkg)

	s := f.calc.Snapshot()
	assert.True(t, s.CalculatedPrice.Equal(basePkg.BasePrice))
	assert.False(t, s.IsCalculating)
	assert.Equal(t, model.PhaseIdle, s.Phase)
}

func TestDebounceSendsOnlyFinalSelection(t *testing.T) {
	f := newFixture(t, basePkg)

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1}}))
	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{2, 1}}))
	assert.Equal(t, model.PhaseWaiting, f.calc.Snapshot().Phase)

	f.settle(t)
	c := f.quoter.next(t)
	assert.Equal(t, []int64{1, 2}, c.req.SelectedFeatureIDs)
	assert.Equal(t, int64(1), c.req.PackageID)
	assert.True(t, c.req.BasePrice.Equal(basePkg.BasePrice))
	require.Eventually(t, func() bool { return f.calc.Snapshot().IsCalculating }, time.Second, 5*time.Millisecond)

	c.ok("49.99")
	f.waitPrice(t, "49.99")
	f.quoter.none(t)
	assert.Equal(t, 1.0, f.outcome(t, metrics.OutcomeRequested))
}

func TestSameSelectionIsNoop(t *testing.T) {
	f := newFixture(t, basePkg)
	sel := model.Selection{FeatureIDs: []int64{3, 1}, UsageLimits: map[int64]int64{7: 10}}
	f.apply(t, sel, "39.99")

	// тот же набор в другом порядке
	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1, 3}, UsageLimits: map[int64]int64{7: 10}}))

	s := f.calc.Snapshot()
	assert.Equal(t, model.PhaseIdle, s.Phase)
	assert.True(t, s.CalculatedPrice.Equal(decimal.RequireFromString("39.99")))
	f.clk.Advance(time.Second)
	f.quoter.none(t)
	assert.Equal(t, 1.0, f.outcome(t, metrics.OutcomeSkipped))
}

func TestSameSelectionInFlightIsNoop(t *testing.T) {
	f := newFixture(t, basePkg)
	sel := model.Selection{FeatureIDs: []int64{1}}

	require.NoError(t, f.calc.RequestCalculation(sel))
	f.settle(t)
	c := f.quoter.next(t)
	require.Eventually(t, func() bool { return f.calc.Snapshot().Phase == model.PhaseInFlight }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1, 1}}))
	assert.Equal(t, model.PhaseInFlight, f.calc.Snapshot().Phase)

	c.ok("39.99")
	f.waitPrice(t, "39.99")
	f.clk.Advance(time.Second)
	f.quoter.none(t)
	assert.Equal(t, 1.0, f.outcome(t, metrics.OutcomeRequested))
	assert.Equal(t, 1.0, f.outcome(t, metrics.OutcomeSucceeded))
	assert.Zero(t, f.outcome(t, metrics.OutcomeStale))
}

func TestSameSelectionWhileWaitingKeepsTimer(t *testing.T) {
	f := newFixture(t, basePkg)
	sel := model.Selection{AddOnIDs: []int64{4}}

	require.NoError(t, f.calc.RequestCalculation(sel))
	require.NoError(t, f.calc.RequestCalculation(sel))
	assert.Equal(t, model.PhaseWaiting, f.calc.Snapshot().Phase)

	f.settle(t)
	f.quoter.next(t).ok("31")
	f.waitPrice(t, "31")
	f.quoter.none(t)
	assert.Equal(t, 1.0, f.outcome(t, metrics.OutcomeRequested))
}

func TestRevertToAppliedSelectionCancelsPending(t *testing.T) {
	f := newFixture(t, basePkg)
	a := model.Selection{FeatureIDs: []int64{1}}
	f.apply(t, a, "39.99")

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1, 2}}))
	require.NoError(t, f.calc.RequestCalculation(a))

	f.clk.Advance(time.Second)
	f.quoter.none(t)
	assert.True(t, f.calc.Snapshot().CalculatedPrice.Equal(decimal.RequireFromString("39.99")))
}

func TestCacheHitSkipsNetwork(t *testing.T) {
	f := newFixture(t, basePkg)
	a := model.Selection{AddOnIDs: []int64{5}}
	b := model.Selection{AddOnIDs: []int64{6}}
	f.apply(t, a, "35.00")
	f.apply(t, b, "36.00")

	require.NoError(t, f.calc.RequestCalculation(a))

	s := f.calc.Snapshot()
	assert.True(t, s.CalculatedPrice.Equal(decimal.RequireFromString("35")))
	assert.Equal(t, model.PhaseIdle, s.Phase)
	assert.Equal(t, 2, s.CacheSize)
	f.clk.Advance(time.Second)
	f.quoter.none(t)
	assert.Equal(t, 1.0, f.outcome(t, metrics.OutcomeCacheHit))
}

func TestFailureFallsBackToBasePrice(t *testing.T) {
	f := newFixture(t, basePkg)
	a := model.Selection{FeatureIDs: []int64{1}}
	f.apply(t, a, "39.99")

	sel := model.Selection{FeatureIDs: []int64{2}}
	require.NoError(t, f.calc.RequestCalculation(sel))
	f.settle(t)
	f.quoter.next(t).fail(errors.New("backend unavailable"))

	require.Eventually(t, func() bool { return f.calc.Snapshot().LastError != "" }, 2*time.Second, 5*time.Millisecond)
	s := f.calc.Snapshot()
	assert.True(t, s.CalculatedPrice.Equal(basePkg.BasePrice))
	assert.Contains(t, s.LastError, "backend unavailable")
	assert.False(t, s.IsCalculating)
	assert.Equal(t, 1, s.CacheSize, "failed result is not cached")

	// тот же выбор снова идёт в сеть
	require.NoError(t, f.calc.RequestCalculation(sel))
	f.settle(t)
	f.quoter.next(t).ok("41.00")
	f.waitPrice(t, "41.00")
	assert.Empty(t, f.calc.Snapshot().LastError)

	// возврат к ранее применённому выбору после ошибки обслуживается из кэша
	require.NoError(t, f.calc.RequestCalculation(sel))
	require.NoError(t, f.calc.RequestCalculation(a))
	assert.True(t, f.calc.Snapshot().CalculatedPrice.Equal(decimal.RequireFromString("39.99")))
}

func TestRetryAfterFailureOfAppliedSelection(t *testing.T) {
	f := newFixture(t, basePkg)
	a := model.Selection{FeatureIDs: []int64{1}}
	f.apply(t, a, "39.99")

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{9}}))
	f.settle(t)
	f.quoter.next(t).fail(errors.New("timeout"))
	require.Eventually(t, func() bool { return f.calc.Snapshot().LastError != "" }, 2*time.Second, 5*time.Millisecond)

	// после ошибки на экране базовая цена, поэтому A не считается применённым
	require.NoError(t, f.calc.RequestCalculation(a))
	s := f.calc.Snapshot()
	assert.True(t, s.CalculatedPrice.Equal(decimal.RequireFromString("39.99")))
	assert.Empty(t, s.LastError)
}

func TestInvalidateForcesFreshCalculation(t *testing.T) {
	f := newFixture(t, basePkg)
	a := model.Selection{FeatureIDs: []int64{1}}
	f.apply(t, a, "39.99")

	f.calc.Invalidate(basePkg)
	s := f.calc.Snapshot()
	assert.Zero(t, s.CacheSize)
	assert.True(t, s.CalculatedPrice.Equal(basePkg.BasePrice))

	require.NoError(t, f.calc.RequestCalculation(a))
	f.settle(t)
	f.quoter.next(t).ok("39.99")
	f.waitPrice(t, "39.99")
}

func TestInvalidateSwitchesPackage(t *testing.T) {
	f := newFixture(t, basePkg)
	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1}}))

	next := model.Package{ID: 2, BasePrice: decimal.RequireFromString("59"), Customizable: true}
	f.calc.Invalidate(next)

	// отложенный запрос старого пакета отменён
	f.clk.Advance(time.Second)
	f.quoter.none(t)
	assert.True(t, f.calc.Snapshot().CalculatedPrice.Equal(next.BasePrice))
	assert.Equal(t, next, f.calc.Package())

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1}}))
	f.settle(t)
	c := f.quoter.next(t)
	assert.Equal(t, int64(2), c.req.PackageID)
	c.ok("70")
	f.waitPrice(t, "70")
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	f := newFixture(t, basePkg)

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1}}))
	f.settle(t)
	slow := f.quoter.next(t)

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{2}}))
	f.settle(t)
	fast := f.quoter.next(t)

	fast.ok("50")
	f.waitPrice(t, "50")

	slow.ok("40")
	require.Eventually(t, func() bool { return f.outcome(t, metrics.OutcomeStale) == 1 }, 2*time.Second, 5*time.Millisecond)

	s := f.calc.Snapshot()
	assert.True(t, s.CalculatedPrice.Equal(decimal.RequireFromString("50")))
	assert.Empty(t, s.LastError)
	assert.Equal(t, 1, s.CacheSize, "stale result is not cached")
}

func TestStaleFailureDoesNotSurface(t *testing.T) {
	f := newFixture(t, basePkg)

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1}}))
	f.settle(t)
	slow := f.quoter.next(t)

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{2}}))
	slow.fail(errors.New("boom"))
	require.Eventually(t, func() bool { return f.outcome(t, metrics.OutcomeStale) == 1 }, 2*time.Second, 5*time.Millisecond)

	s := f.calc.Snapshot()
	assert.Empty(t, s.LastError)
	assert.Equal(t, model.PhaseWaiting, s.Phase)
}

func TestNotCustomizableUsesBasePrice(t *testing.T) {
	pkg := basePkg
	pkg.Customizable = false
	f := newFixture(t, pkg)

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1, 2}}))

	s := f.calc.Snapshot()
	assert.True(t, s.CalculatedPrice.Equal(pkg.BasePrice))
	assert.Equal(t, model.PhaseIdle, s.Phase)
	assert.Zero(t, s.CacheSize)
	f.clk.Advance(time.Second)
	f.quoter.none(t)
}

func TestNegativeUsageRejected(t *testing.T) {
	f := newFixture(t, basePkg)

	err := f.calc.RequestCalculation(model.Selection{UsageLimits: map[int64]int64{4: -1}})

	require.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, model.PhaseIdle, f.calc.Snapshot().Phase)
}

func TestCloseCancelsPendingDebounce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t, basePkg)

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1}}))
	f.calc.Close()
	f.clk.Advance(time.Second)

	f.quoter.none(t)
	require.ErrorIs(t, f.calc.RequestCalculation(model.Selection{}), ErrClosed)
}

func TestCloseCancelsInFlight(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t, basePkg)

	require.NoError(t, f.calc.RequestCalculation(model.Selection{FeatureIDs: []int64{1}}))
	f.settle(t)
	_ = f.quoter.next(t)

	f.calc.Close()

	require.Eventually(t, func() bool { return f.outcome(t, metrics.OutcomeStale) == 1 }, 2*time.Second, 5*time.Millisecond)
	s := f.calc.Snapshot()
	assert.True(t, s.CalculatedPrice.Equal(basePkg.BasePrice))
	assert.Empty(t, s.LastError)
}
