package service

import (
	"regexp"
	"strings"
)

// короче этого частичное совпадение не ищем ("id" ⊂ "width")
const minPartial = 3

var rxNonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// normHeaderKey: нижний регистр, ё→е, служебные символы и NBSP → пробел.
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "ё", "е").Replace(s)
	s = rxNonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// resolveKey ищет реальный заголовок по желаемому имени с альтернативами "a|b|c".
// Сначала точное совпадение (как есть, затем нормализованное) по всем
// заголовкам, потом частичное: want ⊂ header или header ⊂ want, самое длинное.
// Заголовки из used пропускаются, чтобы одна колонка не попала в два поля.
func resolveKey(headers []string, want string, used map[string]bool) string {
	want = strings.TrimSpace(want)
	if want == "" {
		return ""
	}
	alts := strings.Split(want, "|")
	norm := make([]string, 0, len(alts))
	for _, a := range alts {
		if n := normHeaderKey(a); n != "" {
			norm = append(norm, n)
		}
	}

	for _, a := range alts {
		a = strings.TrimSpace(a)
		for _, h := range headers {
			if h == a && !used[h] {
				return h
			}
		}
	}
	for _, n := range norm {
		for _, h := range headers {
			if normHeaderKey(h) == n && !used[h] {
				return h
			}
		}
	}

	best, bestScore := "", 0
	for _, h := range headers {
		if used[h] {
			continue
		}
		nh := normHeaderKey(h)
		if len(nh) < minPartial {
			continue
		}
		for _, n := range norm {
			if len(n) < minPartial {
				continue
			}
			if (strings.Contains(nh, n) || strings.Contains(n, nh)) && len(n) > bestScore {
				best, bestScore = h, len(n)
			}
		}
	}
	return best
}
