package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Paystack is a Gateway backed by the Paystack REST API.
type Paystack struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewPaystack creates a Paystack client. An empty secret key yields a client
// whose calls fail with ErrUnavailable, mirroring an unconfigured deploy.
func NewPaystack(baseURL, secretKey string) *Paystack {
	return &Paystack{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackTransferData struct {
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
}

type paystackVerifyData struct {
	Status          string `json:"status"`
	GatewayResponse string `json:"gateway_response"`
	Channel         string `json:"channel"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PaidAt          string `json:"paid_at"`
}

// Initialize creates a checkout with the provider.
func (p *Paystack) Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	if p.secretKey == "" {
		return nil, fmt.Errorf("secret key not configured: %w", ErrUnavailable)
	}

	body := map[string]any{
		"email":    params.Email,
		"amount":   params.AmountMinor,
		"currency": params.Currency,
	}
	if params.Reference != "" {
		body["reference"] = params.Reference
	}
	if params.CallbackURL != "" {
		body["callback_url"] = params.CallbackURL
	}
	if len(params.Channels) > 0 {
		body["channels"] = params.Channels
	}
	if len(params.Metadata) > 0 {
		body["metadata"] = params.Metadata
	}

	env, err := p.post(ctx, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, &RejectedError{Message: env.Message}
	}

	var data paystackInitData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding initialize response: %w", err)
	}
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// Verify fetches the provider's final word on a transaction by reference.
func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if p.secretKey == "" {
		return nil, fmt.Errorf("secret key not configured: %w", ErrUnavailable)
	}

	env, err := p.get(ctx, "/transaction/verify/"+url.PathEscape(reference))
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, &RejectedError{Message: env.Message}
	}

	var data paystackVerifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding verify response: %w", err)
	}

	status := "failed"
	if data.Status == "success" {
		status = "success"
	}

	var paidAt *time.Time
	if data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			paidAt = &t
		}
	}

	return &VerifyResult{
		Status:          status,
		GatewayResponse: data.GatewayResponse,
		Channel:         data.Channel,
		AmountMinor:     data.Amount,
		Currency:        data.Currency,
		PaidAt:          paidAt,
	}, nil
}

// SendPayout initiates a transfer from the provider balance to an external
// recipient. The returned reference is the provider's, not ours; the caller
// keeps its own ledger reference and stores this one alongside.
func (p *Paystack) SendPayout(ctx context.Context, destination string, amountMinor int64, currency string) (string, error) {
	if p.secretKey == "" {
		return "", fmt.Errorf("secret key not configured: %w", ErrUnavailable)
	}

	env, err := p.post(ctx, "/transfer", map[string]any{
		"source":    "balance",
		"amount":    amountMinor,
		"currency":  currency,
		"recipient": destination,
		"reason":    "chama wallet withdrawal",
	})
	if err != nil {
		return "", err
	}
	if !env.Status {
		return "", &RejectedError{Message: env.Message}
	}

	var data paystackTransferData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("decoding transfer response: %w", err)
	}
	if data.Reference != "" {
		return data.Reference, nil
	}
	return data.TransferCode, nil
}

func (p *Paystack) post(ctx context.Context, path string, body any) (*paystackEnvelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req)
}

func (p *Paystack) get(ctx context.Context, path string) (*paystackEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return p.do(req)
}

func (p *Paystack) do(req *http.Request) (*paystackEnvelope, error) {
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		zap.L().Warn("gateway request failed",
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}
	return &env, nil
}
