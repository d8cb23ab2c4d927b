package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Envelope is the wrapper CoinCap puts around every payload.
type Envelope[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// Asset from GET /assets/{id}. Numeric fields arrive as decimal strings.
type Asset struct {
	ID                string  `json:"id"`
	Rank              string  `json:"rank"`
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Supply            string  `json:"supply"`
	MaxSupply         *string `json:"maxSupply"`
	MarketCapUsd      string  `json:"marketCapUsd"`
	VolumeUsd24Hr     string  `json:"volumeUsd24Hr"`
	PriceUsd          string  `json:"priceUsd"`
	ChangePercent24Hr string  `json:"changePercent24Hr"`
	Vwap24Hr          *string `json:"vwap24Hr"`
}

// FetchRaw performs a GET and returns the body as compact JSON. A body that
// is not valid JSON is an error; the payload is otherwise returned as sent.
func (c *Client) FetchRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// GetAsset fetches a single asset by id, e.g. "bitcoin".
func (c *Client) GetAsset(ctx context.Context, id string) (*Asset, error) {
	var resp Envelope[Asset]
	if err := c.get(ctx, "/assets/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	return &resp.Data, nil
}
