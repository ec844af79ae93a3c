package service

import (
	"slices"
	"sync"
	"time"

	"pos-catalog/internal/catalog/model"
	"pos-catalog/internal/metrics"
	"pos-catalog/internal/search"
)

// Store держит каталог в памяти. Импорт заменяет его целиком; поиск идёт по
// снимку, поэтому Replace не блокирует уже начатые запросы.
type Store struct {
	mu       sync.RWMutex
	products []model.Product
	source   string
	loadedAt time.Time
	metrics  *metrics.Metrics
}

func NewStore(m *metrics.Metrics) *Store {
	return &Store{metrics: m}
}

func (s *Store) Replace(products []model.Product, source string) {
	cp := slices.Clone(products)
	s.mu.Lock()
	s.products = cp
	s.source = source
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

func (s *Store) snapshot() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products
}

func (s *Store) All() []model.Product { return slices.Clone(s.snapshot()) }

func (s *Store) Len() int { return len(s.snapshot()) }

// Source: имя последнего импортированного файла и время загрузки.
func (s *Store) Source() (string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source, s.loadedAt
}

// SearchFields: поля товара, по которым работает поиск.
func SearchFields(p model.Product) []string {
	return []string{p.Name, p.Code, p.Barcode}
}

func (s *Store) Search(query string, opts ...search.Option) []model.Hit {
	s.metrics.Search()
	ranked := search.Rank(s.snapshot(), query, SearchFields, opts...)
	hits := make([]model.Hit, len(ranked))
	for i, r := range ranked {
		hits[i] = model.Hit{Product: r.Item, Score: r.Score}
	}
	return hits
}
