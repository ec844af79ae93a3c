package search

import "sort"

const DefaultMinScore = 0.1

// Scored: запись вызывающей стороны с посчитанной оценкой. Исходная запись не меняется.
type Scored[T any] struct {
	Item  T       `json:"item"`
	Score float64 `json:"score"`
}

type options struct {
	minScore float64
	limit    int
}

type Option func(*options)

// WithMinScore задаёт порог: записи с оценкой строго ниже отбрасываются.
func WithMinScore(s float64) Option {
	return func(o *options) { o.minScore = s }
}

// WithLimit обрезает результат до n записей; n <= 0, без ограничения.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// Rank фильтрует и ранжирует items по query. Пустой запрос возвращает всё
// с оценкой 1 в исходном порядке. Сортировка устойчивая: при равной оценке
// сохраняется порядок входа.
func Rank[T any](items []T, query string, fields func(T) []string, opts ...Option) []Scored[T] {
	o := options{minScore: DefaultMinScore}
	for _, opt := range opts {
		opt(&o)
	}

	q := fold(query)
	out := make([]Scored[T], 0, len(items))

	if q == "" {
		for _, it := range items {
			out = append(out, Scored[T]{Item: it, Score: 1})
		}
		return truncate(out, o.limit)
	}

	for _, it := range items {
		s := scoreFieldsFolded(q, fields(it))
		if s >= o.minScore {
			out = append(out, Scored[T]{Item: it, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return truncate(out, o.limit)
}

func truncate[T any](s []Scored[T], n int) []Scored[T] {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
