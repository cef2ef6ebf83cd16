package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"farmstand/internal/domain"
)

// PaystackClient talks to the Paystack transaction API.
type PaystackClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewPaystackClient(baseURL, secretKey string, client *http.Client) *PaystackClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PaystackClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    client,
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

type paystackVerifyData struct {
	Reference string     `json:"reference"`
	Status    string     `json:"status"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Channel   string     `json:"channel"`
	PaidAt    *time.Time `json:"paid_at"`
}

func (c *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (InitializeResponse, error) {
	body := map[string]any{
		"email":     req.Email,
		"amount":    req.AmountMinor,
		"reference": req.Reference,
		"channels":  []string{paystackChannel(req.Channel)},
	}
	if req.Currency != "" {
		body["currency"] = req.Currency
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var data paystackInitData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return InitializeResponse{}, err
	}
	return InitializeResponse{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

func (c *PaystackClient) Verify(ctx context.Context, reference string) (VerifyResponse, error) {
	var data paystackVerifyData
	err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && (pe.StatusCode == http.StatusNotFound || pe.StatusCode == http.StatusBadRequest) {
			return VerifyResponse{}, fmt.Errorf("%w: %s", ErrUnknownReference, pe.Message)
		}
		return VerifyResponse{}, err
	}
	return VerifyResponse{
		Reference:   data.Reference,
		Status:      data.Status,
		AmountMinor: data.Amount,
		Currency:    data.Currency,
		Channel:     data.Channel,
		PaidAt:      data.PaidAt,
	}, nil
}

func (c *PaystackClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env paystackEnvelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		return &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if !env.Status {
		return &ProviderError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func paystackChannel(c domain.PaymentChannel) string {
	if c == domain.ChannelBankTransfer {
		return "bank_transfer"
	}
	return "card"
}
