package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestJSONBasePriceIsNumber(t *testing.T) {
	req := NewRequest(
		Package{ID: 4, BasePrice: decimal.RequireFromString("29.990")},
		Selection{FeatureIDs: []int64{2, 1, 2}},
	)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"packageId":4,"basePrice":29.99,"selectedFeatureIds":[1,2],"selectedAddOnIds":[],"usageLimits":{}}`,
		string(data))
}

func TestSortedIDs(t *testing.T) {
	assert.Equal(t, []int64{}, SortedIDs(nil))
	assert.Equal(t, []int64{1, 3, 7}, SortedIDs([]int64{7, 3, 1, 3}))

	in := []int64{2, 1}
	_ = SortedIDs(in)
	assert.Equal(t, []int64{2, 1}, in, "input is not reordered")
}
