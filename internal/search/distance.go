package search

// EditDistance считает расстояние Левенштейна по рунам:
// вставка, удаление и замена стоят 1.
func EditDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// две строки матрицы вместо полной таблицы
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			// удаление / вставка / замена
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// similarity возвращает 1 - d/max(len), от 0 до 1.
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	m := max(la, lb)
	if m == 0 {
		return 1
	}
	return 1 - float64(EditDistance(a, b))/float64(m)
}
