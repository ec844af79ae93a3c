package search

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Уровни оценки. Совпадения по расстоянию правки сжимаются коэффициентом
// fuzzyWeight и поэтому всегда ниже ScoreContains.
const (
	ScoreExact    = 1.0
	ScorePrefix   = 0.9
	ScoreContains = 0.8

	fuzzyWeight = 0.7
	fuzzyFloor  = 0.3
)

// fold: обрезка пробелов + нижний регистр (Unicode-aware).
func fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(s)
}

// Score оценивает близость query к target. Срабатывает первое подходящее правило:
// пусто → 0, равенство → 1, префикс → 0.9, подстрока → 0.8,
// иначе схожесть по Левенштейну (×0.7, если не ниже 0.3).
func Score(query, target string) float64 {
	return scoreFolded(fold(query), fold(target))
}

func scoreFolded(q, t string) float64 {
	if q == "" || t == "" {
		return 0
	}
	switch {
	case q == t:
		return ScoreExact
	case strings.HasPrefix(t, q):
		return ScorePrefix
	case strings.Contains(t, q):
		return ScoreContains
	}
	if sim := similarity(q, t); sim >= fuzzyFloor {
		return sim * fuzzyWeight
	}
	return 0
}

// ScoreFields: максимум Score по всем полям; пустые поля дают 0.
func ScoreFields(query string, fields []string) float64 {
	return scoreFieldsFolded(fold(query), fields)
}

func scoreFieldsFolded(q string, fields []string) float64 {
	if q == "" {
		return 0
	}
	best := 0.0
	for _, f := range fields {
		if s := scoreFolded(q, fold(f)); s > best {
			best = s
			if best == ScoreExact {
				break
			}
		}
	}
	return best
}
