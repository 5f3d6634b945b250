// File: internal/infra/payment/cryptopay_gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*CryptoPayGateway)(nil)

const (
	mainnetBaseURL = "https://pay.crypt.bot/api"
	testnetBaseURL = "https://testnet-pay.crypt.bot/api"
)

// CryptoPayGateway implements adapter.PaymentGateway against the Crypto Pay
// REST API. Testnet and mainnet differ only by hostname and token.
type CryptoPayGateway struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewCryptoPayGateway(token string, testnet bool) (*CryptoPayGateway, error) {
	if token == "" {
		return nil, errors.New("cryptopay token empty")
	}
	base := mainnetBaseURL
	if testnet {
		base = testnetBaseURL
	}
	return &CryptoPayGateway{
		token:   token,
		baseURL: base,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *CryptoPayGateway) Name() string { return "cryptopay" }

// envelope is the common Crypto Pay response wrapper.
type envelope struct {
	Ok     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"error"`
}

func (g *CryptoPayGateway) call(ctx context.Context, method, apiMethod string, body any, out any) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+"/"+apiMethod, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrGatewayFailed, apiMethod, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", domain.ErrGatewayFailed, apiMethod, err)
	}
	if !env.Ok {
		if env.Error != nil {
			return fmt.Errorf("%w: %s: %d %s", domain.ErrGatewayFailed, apiMethod, env.Error.Code, env.Error.Name)
		}
		return fmt.Errorf("%w: %s: http %d", domain.ErrGatewayFailed, apiMethod, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%w: %s: result: %v", domain.ErrGatewayFailed, apiMethod, err)
		}
	}
	return nil
}

func (g *CryptoPayGateway) GetMe(ctx context.Context) (*adapter.AccountInfo, error) {
	var res struct {
		AppID                    int64  `json:"app_id"`
		Name                     string `json:"name"`
		PaymentProcessingBotName string `json:"payment_processing_bot_username"`
	}
	if err := g.call(ctx, http.MethodGet, "getMe", nil, &res); err != nil {
		return nil, err
	}
	return &adapter.AccountInfo{
		AppID:                    res.AppID,
		Name:                     res.Name,
		PaymentProcessingBotName: res.PaymentProcessingBotName,
	}, nil
}

func (g *CryptoPayGateway) GetBalances(ctx context.Context) ([]adapter.Balance, error) {
	var res []struct {
		CurrencyCode string `json:"currency_code"`
		Available    string `json:"available"`
	}
	if err := g.call(ctx, http.MethodGet, "getBalance", nil, &res); err != nil {
		return nil, err
	}
	out := make([]adapter.Balance, 0, len(res))
	for _, b := range res {
		out = append(out, adapter.Balance{Currency: b.CurrencyCode, Available: b.Available})
	}
	return out, nil
}

func (g *CryptoPayGateway) CreateInvoice(ctx context.Context, spec adapter.InvoiceSpec) (*adapter.GatewayInvoice, error) {
	if spec.Asset == "" || spec.Amount == "" {
		return nil, domain.ErrInvalidArgument
	}
	payload := map[string]any{
		"asset":  spec.Asset,
		"amount": spec.Amount,
	}
	if spec.Description != "" {
		payload["description"] = spec.Description
	}
	if spec.HiddenMessage != "" {
		payload["hidden_message"] = spec.HiddenMessage
	}
	if spec.ExpiresIn > 0 {
		payload["expires_in"] = spec.ExpiresIn
	}
	if spec.PaidButton != "" {
		payload["paid_btn_name"] = spec.PaidButton
		payload["paid_btn_url"] = spec.PaidButtonURL
	}

	var res struct {
		InvoiceID int64  `json:"invoice_id"`
		Status    string `json:"status"`
		Asset     string `json:"asset"`
		Amount    string `json:"amount"`
		PayURL    string `json:"pay_url"`
		CreatedAt string `json:"created_at"`
	}
	if err := g.call(ctx, http.MethodPost, "createInvoice", payload, &res); err != nil {
		return nil, err
	}

	created := time.Now()
	if res.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, res.CreatedAt); err == nil {
			created = t
		}
	}
	return &adapter.GatewayInvoice{
		InvoiceID: res.InvoiceID,
		Status:    res.Status,
		Asset:     res.Asset,
		Amount:    res.Amount,
		PayURL:    res.PayURL,
		CreatedAt: created,
	}, nil
}

// WebhookSignature computes the signature Crypto Pay attaches to webhook
// deliveries: HMAC-SHA256 of the raw body keyed with SHA256(token).
func WebhookSignature(token string, body []byte) string {
	secret := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the crypto-pay-api-signature header value.
func VerifyWebhookSignature(token string, body []byte, signature string) bool {
	want := WebhookSignature(token, body)
	return hmac.Equal([]byte(want), []byte(signature))
}
