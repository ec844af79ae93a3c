package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"pos-catalog/internal/pricing/model"
)

// Quoter считает цену во внешнем сервисе. Калькулятор не повторяет неудачные вызовы.
type Quoter interface {
	Calculate(ctx context.Context, req model.Request) (model.Response, error)
}

var ErrBadResponse = errors.New("bad price response")

const maxResponseBytes = 1 << 20

// HTTPQuoter ходит в бэкенд: POST {base}/packages/{id}/calculate-price.
type HTTPQuoter struct {
	baseURL string
	client  *http.Client
}

func NewHTTPQuoter(baseURL string, timeout time.Duration) *HTTPQuoter {
	return &HTTPQuoter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (q *HTTPQuoter) Calculate(ctx context.Context, req model.Request) (model.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.Response{}, fmt.Errorf("encode price request: %w", err)
	}
	url := fmt.Sprintf("%s/packages/%d/calculate-price", q.baseURL, req.PackageID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return model.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := q.client.Do(httpReq)
	if err != nil {
		return model.Response{}, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.Response{}, fmt.Errorf("read price response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Response{}, statusError(resp.StatusCode, data)
	}
	return decodeResponse(data)
}

// statusError вытаскивает message/error из тела ответа бэкенда, если оно есть.
func statusError(status int, data []byte) error {
	msg := ""
	if gjson.ValidBytes(data) {
		root := gjson.ParseBytes(data)
		for _, path := range []string{"message", "error.message", "error"} {
			if v := root.Get(path); v.Type == gjson.String && v.Str != "" {
				msg = v.Str
				break
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("price calculation failed (%d): %s", status, msg)
}

// decodeResponse терпим к форме: числа или числовые строки, необязательная
// обёртка {"data": {...}}.
func decodeResponse(data []byte) (model.Response, error) {
	if !gjson.ValidBytes(data) {
		return model.Response{}, fmt.Errorf("%w: invalid json", ErrBadResponse)
	}
	root := gjson.ParseBytes(data)
	if d := root.Get("data"); d.IsObject() {
		root = d
	}

	total, err := decimalField(root, "totalPrice")
	if err != nil {
		return model.Response{}, err
	}
	out := model.Response{TotalPrice: total}

	if bd := root.Get("breakdown"); bd.IsObject() {
		var b model.Breakdown
		fields := []struct {
			path string
			dst  *decimal.Decimal
		}{
			{"basePrice", &b.BasePrice},
			{"featuresPrice", &b.FeaturesPrice},
			{"addOnsPrice", &b.AddOnsPrice},
			{"usagePrice", &b.UsagePrice},
		}
		for _, f := range fields {
			if !bd.Get(f.path).Exists() {
				continue
			}
			v, err := decimalField(bd, f.path)
			if err != nil {
				return model.Response{}, err
			}
			*f.dst = v
		}
		out.Breakdown = &b
	}
	return out, nil
}

func decimalField(obj gjson.Result, path string) (decimal.Decimal, error) {
	v := obj.Get(path)
	var raw string
	switch v.Type {
	case gjson.Number:
		raw = v.Raw
	case gjson.String:
		raw = strings.TrimSpace(v.Str)
	default:
		return decimal.Zero, fmt.Errorf("%w: %s missing", ErrBadResponse, path)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrBadResponse, path, err)
	}
	return d, nil
}
