package service

import (
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pos-catalog/internal/pricing/model"
)

// BuildCacheKey: каноническая строка выбора. Порядок id и порядок вставки
// в usage не влияют на результат; 29.99 и 29.990 дают один ключ.
//
//	p=1;b=29.99;f=1,2,3;a=;u=3:10,7:1
func BuildCacheKey(packageID int64, basePrice decimal.Decimal, featureIDs, addOnIDs []int64, usage map[int64]int64) string {
	var b strings.Builder
	b.WriteString("p=")
	b.WriteString(strconv.FormatInt(packageID, 10))
	b.WriteString(";b=")
	b.WriteString(basePrice.String())
	b.WriteString(";f=")
	writeIDs(&b, model.SortedIDs(featureIDs))
	b.WriteString(";a=")
	writeIDs(&b, model.SortedIDs(addOnIDs))
	b.WriteString(";u=")

	keys := make([]int64, 0, len(usage))
	for id := range usage {
		keys = append(keys, id)
	}
	slices.Sort(keys)
	for i, id := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(usage[id], 10))
	}
	return b.String()
}

// RequestKey строит ключ для уже собранного запроса.
func RequestKey(r model.Request) string {
	return BuildCacheKey(r.PackageID, r.BasePrice, r.SelectedFeatureIDs, r.SelectedAddOnIDs, r.UsageLimits)
}

func writeIDs(b *strings.Builder, ids []int64) {
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
}
