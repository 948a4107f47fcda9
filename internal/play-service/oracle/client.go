package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Reading é a leitura crua da fonte de aleatoriedade externa
type Reading struct {
	RoundID     uint64 `json:"round_id"`
	Value       uint64 `json:"value"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// Source abstrai a fonte de aleatoriedade (simulador local ou provedor real)
type Source interface {
	LatestRoundData(ctx context.Context, modulus uint64) (Reading, error)
}

// HTTPSource consome a fonte via HTTP (oracle-simulator)
type HTTPSource struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPSource(base string) *HTTPSource {
	return &HTTPSource{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *HTTPSource) LatestRoundData(ctx context.Context, modulus uint64) (Reading, error) {
	url := fmt.Sprintf("%s/oracle/latest?modulus=%d", c.BaseURL, modulus)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return Reading{}, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return Reading{}, fmt.Errorf("oracle http %d", res.StatusCode)
	}
	var out Reading
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Reading{}, err
	}
	return out, nil
}
