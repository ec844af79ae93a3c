package service

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"pos-catalog/internal/metrics"
	"pos-catalog/internal/pricing/model"
)

var ErrTooManySessions = errors.New("too many pricing sessions")

// SessionsConfig ограничивает число сессий и время жизни брошенных.
// Нулевые значения отключают соответствующий лимит.
type SessionsConfig struct {
	MaxSessions int
	IdleTTL     time.Duration
	Clock       clock.Clock
}

type session struct {
	calc     *Calculator
	lastUsed time.Time
}

// Sessions хранит калькуляторы, по одному на настраиваемый пакет в UI.
// Кэш у каждого свой, между сессиями ничего не разделяется. Клиент, ушедший
// без DELETE, теряет сессию через IdleTTL.
type Sessions struct {
	mu      sync.Mutex
	items   map[string]*session
	quoter  Quoter
	opts    []Option
	metrics *metrics.Metrics
	cfg     SessionsConfig

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewSessions(q Quoter, m *metrics.Metrics, cfg SessionsConfig, opts ...Option) *Sessions {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	s := &Sessions{
		items:   make(map[string]*session),
		quoter:  q,
		opts:    append(slices.Clone(opts), WithMetrics(m)),
		metrics: m,
		cfg:     cfg,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if cfg.IdleTTL > 0 {
		go s.janitor()
	} else {
		close(s.done)
	}
	return s
}

func (s *Sessions) janitor() {
	defer close(s.done)
	interval := max(s.cfg.IdleTTL/2, time.Second)
	for {
		select {
		case <-s.cfg.Clock.After(interval):
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Sessions) Create(pkg model.Package) (string, *Calculator, error) {
	s.mu.Lock()
	if s.cfg.MaxSessions > 0 && len(s.items) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		// место могли занимать брошенные сессии
		if s.Sweep() == 0 {
			return "", nil, ErrTooManySessions
		}
		s.mu.Lock()
		if len(s.items) >= s.cfg.MaxSessions {
			s.mu.Unlock()
			return "", nil, ErrTooManySessions
		}
	}
	id := uuid.NewString()
	calc := NewCalculator(pkg, s.quoter, s.opts...)
	s.items[id] = &session{calc: calc, lastUsed: s.cfg.Clock.Now()}
	n := len(s.items)
	s.mu.Unlock()

	s.metrics.SessionsOpen(n)
	return id, calc, nil
}

// Get продлевает жизнь сессии.
func (s *Sessions) Get(id string) (*Calculator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, false
	}
	it.lastUsed = s.cfg.Clock.Now()
	return it.calc, true
}

// Close закрывает и удаляет сессию; false, если её нет.
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	it, ok := s.items[id]
	delete(s.items, id)
	n := len(s.items)
	s.mu.Unlock()

	if !ok {
		return false
	}
	it.calc.Close()
	s.metrics.SessionsOpen(n)
	return true
}

// Sweep закрывает сессии, не использованные дольше IdleTTL, и возвращает их число.
func (s *Sessions) Sweep() int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}
	now := s.cfg.Clock.Now()

	s.mu.Lock()
	var expired []*Calculator
	for id, it := range s.items {
		if now.Sub(it.lastUsed) > s.cfg.IdleTTL {
			expired = append(expired, it.calc)
			delete(s.items, id)
		}
	}
	n := len(s.items)
	s.mu.Unlock()

	for _, calc := range expired {
		calc.Close()
	}
	if len(expired) > 0 {
		s.metrics.SessionsOpen(n)
	}
	return len(expired)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// CloseAll вызывается при остановке сервера.
func (s *Sessions) CloseAll() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	s.mu.Lock()
	items := s.items
	s.items = make(map[string]*session)
	s.mu.Unlock()

	for _, it := range items {
		it.calc.Close()
	}
	s.metrics.SessionsOpen(0)
}
