package model

import (
	"encoding/json"
	"slices"

	"github.com/shopspring/decimal"
)

// Package: контекст товара, для которого считается цена.
type Package struct {
	ID           int64           `json:"packageId"`
	BasePrice    decimal.Decimal `json:"basePrice"`
	Customizable bool            `json:"customizable"`
}

// Selection описывает выбор пользователя: функции, дополнения и лимиты использования.
type Selection struct {
	FeatureIDs  []int64         `json:"featureIds"`
	AddOnIDs    []int64         `json:"addOnIds"`
	UsageLimits map[int64]int64 `json:"usageLimits"`
}

// Request: тело запроса расчёта цены. Id отсортированы и без повторов.
type Request struct {
	PackageID          int64           `json:"packageId"`
	BasePrice          decimal.Decimal `json:"basePrice"`
	SelectedFeatureIDs []int64         `json:"selectedFeatureIds"`
	SelectedAddOnIDs   []int64         `json:"selectedAddOnIds"`
	UsageLimits        map[int64]int64 `json:"usageLimits"`
}

// MarshalJSON отдаёт basePrice числом: бэкенд ждёт decimal, а не строку.
func (r Request) MarshalJSON() ([]byte, error) {
	type plain Request
	return json.Marshal(struct {
		plain
		BasePrice json.Number `json:"basePrice"`
	}{plain: plain(r), BasePrice: json.Number(r.BasePrice.String())})
}

// NewRequest собирает Request из пакета и выбора, нормализуя множества id.
func NewRequest(pkg Package, sel Selection) Request {
	usage := make(map[int64]int64, len(sel.UsageLimits))
	for id, qty := range sel.UsageLimits {
		usage[id] = qty
	}
	return Request{
		PackageID:          pkg.ID,
		BasePrice:          pkg.BasePrice,
		SelectedFeatureIDs: SortedIDs(sel.FeatureIDs),
		SelectedAddOnIDs:   SortedIDs(sel.AddOnIDs),
		UsageLimits:        usage,
	}
}

// SortedIDs возвращает отсортированную копию без повторов (никогда не nil).
func SortedIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	if out == nil {
		out = []int64{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

type Breakdown struct {
	BasePrice     decimal.Decimal `json:"basePrice"`
	FeaturesPrice decimal.Decimal `json:"featuresPrice"`
	AddOnsPrice   decimal.Decimal `json:"addOnsPrice"`
	UsagePrice    decimal.Decimal `json:"usagePrice"`
}

// Response: ответ бэкенда; Breakdown справочный и в логике кэша не участвует.
type Response struct {
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Breakdown  *Breakdown      `json:"breakdown,omitempty"`
}

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseWaiting  Phase = "waiting"
	PhaseInFlight Phase = "in_flight"
)

// State: снимок калькулятора для отображения.
type State struct {
	CalculatedPrice decimal.Decimal `json:"calculatedPrice"`
	IsCalculating   bool            `json:"isCalculating"`
	LastError       string          `json:"lastError,omitempty"`
	Phase           Phase           `json:"phase"`
	CacheSize       int             `json:"cacheSize"`
}
