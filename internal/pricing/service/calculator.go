package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pos-catalog/internal/metrics"
	"pos-catalog/internal/pricing/model"
)

// DefaultDebounce: окно успокоения ввода перед сетевым вызовом.
const DefaultDebounce = 300 * time.Millisecond

var (
	ErrInvalidSelection = errors.New("invalid selection")
	ErrClosed           = errors.New("calculator closed")
)

// Calculator превращает поток изменений выбора в минимум вызовов Quoter.
//
// Переходы: Idle → Waiting (новый ключ, таймер) → InFlight (таймер сработал)
// → Idle (ответ). Каждое запланированное действие получает номер поколения;
// новый ввод, попадание в кэш, Invalidate и Close увеличивают номер, и
// завершения со старым номером отбрасываются.
//
// Таймер и ответ сети приходят из других горутин, поэтому всё состояние
// под mu; сам вызов Quoter идёт без блокировки.
type Calculator struct {
	mu sync.Mutex

	clock   clock.Clock
	quoter  Quoter
	baseLog zerolog.Logger
	logger  zerolog.Logger
	metrics *metrics.Metrics
	delay   time.Duration

	pkg         model.Package
	cache       *Cache
	phase       model.Phase
	timer       clock.Timer
	gen         uint64
	pendingKey  string // ключ текущего поколения, пока оно ждёт таймера или ответа
	lastApplied string
	price       decimal.Decimal
	calculating bool
	lastErr     string
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Calculator)

func WithClock(c clock.Clock) Option { return func(calc *Calculator) { calc.clock = c } }

func WithDebounce(d time.Duration) Option { return func(calc *Calculator) { calc.delay = d } }

func WithCacheSize(n int) Option { return func(calc *Calculator) { calc.cache = NewCache(n) } }

func WithLogger(l zerolog.Logger) Option { return func(calc *Calculator) { calc.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(calc *Calculator) { calc.metrics = m } }

func NewCalculator(pkg model.Package, q Quoter, opts ...Option) *Calculator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Calculator{
		clock:  clock.WallClock,
		quoter: q,
		logger: zerolog.Nop(),
		delay:  DefaultDebounce,
		pkg:    pkg,
		cache:  NewCache(DefaultCacheSize),
		phase:  model.PhaseIdle,
		price:  pkg.BasePrice,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseLog = c.logger
	c.logger = c.baseLog.With().Int64("package", pkg.ID).Logger()
	return c
}

// RequestCalculation принимает новый выбор. Сетевые ошибки сюда не возвращаются:
// они попадают в State.LastError. Ошибка только для невалидного выбора или
// закрытого калькулятора.
func (c *Calculator) RequestCalculation(sel model.Selection) error {
	for id, qty := range sel.UsageLimits {
		if qty < 0 {
			return fmt.Errorf("%w: usage limit for feature %d is negative", ErrInvalidSelection, id)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.pkg.Customizable {
		c.price = c.pkg.BasePrice
		return nil
	}

	req := model.NewRequest(c.pkg, sel)
	key := RequestKey(req)

	// Тот же выбор уже ждёт таймера или ответа: не трогаем его.
	if key == c.pendingKey && c.phase != model.PhaseIdle {
		c.metrics.PriceOutcome(metrics.OutcomeSkipped)
		return nil
	}

	// Уже применённое состояние (например, флажок включили и сразу выключили).
	// После ошибки на экране базовая цена, поэтому идём дальше к кэшу.
	if key == c.lastApplied && c.lastErr == "" {
		c.supersedeLocked()
		c.metrics.PriceOutcome(metrics.OutcomeSkipped)
		return nil
	}

	if price, ok := c.cache.Get(key); ok {
		c.supersedeLocked()
		c.applyLocked(key, price)
		c.metrics.PriceOutcome(metrics.OutcomeCacheHit)
		c.logger.Debug().Str("key", key).Msg("price from cache")
		return nil
	}

	c.scheduleLocked(key, req)
	return nil
}

// Invalidate переключает калькулятор на новый пакет или базовую цену:
// кэш и последний применённый ключ сбрасываются, отложенная работа отменяется.
func (c *Calculator) Invalidate(pkg model.Package) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersedeLocked()
	c.pkg = pkg
	c.cache.Clear()
	c.lastApplied = ""
	c.lastErr = ""
	c.price = pkg.BasePrice
	c.logger = c.baseLog.With().Int64("package", pkg.ID).Logger()
}

// Close останавливает таймер и отменяет контекст вызова в полёте.
// После Close состояние больше не меняется.
func (c *Calculator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.supersedeLocked()
	c.closed = true
	c.cancel()
}

func (c *Calculator) Package() model.Package {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pkg
}

func (c *Calculator) Snapshot() model.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.State{
		CalculatedPrice: c.price,
		IsCalculating:   c.calculating,
		LastError:       c.lastErr,
		Phase:           c.phase,
		CacheSize:       c.cache.Len(),
	}
}

// supersedeLocked отменяет отложенный вызов и делает устаревшим вызов в полёте.
func (c *Calculator) supersedeLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.pendingKey = ""
	c.phase = model.PhaseIdle
	c.calculating = false
}

func (c *Calculator) applyLocked(key string, price decimal.Decimal) {
	c.price = price
	c.lastApplied = key
	c.lastErr = ""
}

func (c *Calculator) scheduleLocked(key string, req model.Request) {
	c.supersedeLocked()
	gen := c.gen
	c.pendingKey = key
	c.phase = model.PhaseWaiting
	c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen, key, req) })
}

func (c *Calculator) fire(gen uint64, key string, req model.Request) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.phase = model.PhaseInFlight
	c.calculating = true
	c.lastErr = ""
	ctx := c.ctx
	quoter := c.quoter
	c.mu.Unlock()

	c.metrics.PriceOutcome(metrics.OutcomeRequested)
	resp, err := quoter.Calculate(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		c.metrics.PriceOutcome(metrics.OutcomeStale)
		c.logger.Debug().Str("key", key).Uint64("gen", gen).Msg("discarding stale price calculation")
		return
	}
	c.phase = model.PhaseIdle
	c.pendingKey = ""
	c.calculating = false

	if err != nil {
		c.lastErr = err.Error()
		c.price = c.pkg.BasePrice
		c.metrics.PriceOutcome(metrics.OutcomeFailed)
		c.logger.Warn().Err(err).Str("key", key).Msg("price calculation failed")
		return
	}

	c.cache.Put(key, resp.TotalPrice)
	c.applyLocked(key, resp.TotalPrice)
	c.metrics.PriceOutcome(metrics.OutcomeSucceeded)
	c.logger.Debug().Str("key", key).Str("total", resp.TotalPrice.String()).Msg("price calculated")
}
