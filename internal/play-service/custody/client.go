package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client fala com o serviço de custódia de saldos. O motor nunca assume que
// essas chamadas não podem falhar: qualquer erro aborta a operação chamadora.
type Client struct {
	BaseURL      string
	HouseAccount string
	HTTP         *http.Client
}

func New(base, houseAccount string) *Client {
	return &Client{
		BaseURL:      base,
		HouseAccount: houseAccount,
		HTTP:         &http.Client{Timeout: 2 * time.Second},
	}
}

type transferReq struct {
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	AmountCents uint64 `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}

type balanceResp struct {
	UserID       string `json:"userId"`
	BalanceCents uint64 `json:"balance_cents"`
}

// TransferFrom move o total do lote da conta do usuário para a conta da casa
func (c *Client) TransferFrom(ctx context.Context, from string, amountCents uint64, externalRef string) error {
	return c.post(ctx, "/custody/transfer-from", transferReq{
		From:        from,
		To:          c.HouseAccount,
		AmountCents: amountCents,
		ExternalRef: externalRef,
	})
}

// Transfer paga prêmio/reembolso da conta da casa para o usuário
func (c *Client) Transfer(ctx context.Context, to string, amountCents uint64, externalRef string) error {
	return c.post(ctx, "/custody/transfer", transferReq{
		From:        c.HouseAccount,
		To:          to,
		AmountCents: amountCents,
		ExternalRef: externalRef,
	})
}

// BalanceOf consulta o saldo custodiado de uma conta
func (c *Client) BalanceOf(ctx context.Context, userID string) (uint64, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/custody/balance?userId="+userID, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return 0, fmt.Errorf("custody balance http %d", res.StatusCode)
	}
	var out balanceResp
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.BalanceCents, nil
}

func (c *Client) post(ctx context.Context, path string, payload transferReq) error {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("custody %s http %d", path, res.StatusCode)
	}
	return nil
}
