package culqi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/encamino/encamino-backend/pkg/config"
	pkgerrors "github.com/encamino/encamino-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.culqi.com/v1"
	defaultTimeout             = 15 * time.Second
	requestBodyReadLimit int64 = 4096
)

var (
	errSecretKeyRequired     = errors.New("culqi secret key is required")
	errWebhookSecretRequired = errors.New("culqi webhook secret is required")
)

// Client wraps the Culqi tokens/charges/refunds API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Culqi base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Culqi client from the configured secrets.
func NewClient(cfg config.CulqiConfig, opts ...Option) (*Client, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// APIError carries the gateway's rejection payload. A 4xx status means the
// gateway understood and declined the request; 5xx means it is unavailable.
type APIError struct {
	StatusCode      int
	MerchantMessage string
}

func (e *APIError) Error() string {
	msg := e.MerchantMessage
	if msg == "" {
		msg = "culqi request failed"
	}
	return fmt.Sprintf("culqi: status %d: %s", e.StatusCode, msg)
}

// IsRejection reports whether err is a gateway 4xx decline.
func IsRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// TokenRequest is the OTP exchange for wallet payments.
type TokenRequest struct {
	PhoneNumber string         `json:"number_phone"`
	OTP         string         `json:"otp"`
	Amount      int64          `json:"amount"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ChargeRequest describes the payload sent to the charges API. Amount is in
// minor units of Currency.
type ChargeRequest struct {
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency_code"`
	Email       string         `json:"email"`
	SourceID    string         `json:"source_id"`
	Capture     bool           `json:"capture"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Charge is the subset of the gateway's charge object the platform consumes.
type Charge struct {
	ID           string `json:"id"`
	AmountStatus string `json:"amount_status"`
}

// RefundRequest describes the payload sent to the refunds API.
type RefundRequest struct {
	ChargeID string `json:"charge_id"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

// CreateToken exchanges a wallet OTP for a one-time source token.
func (c *Client) CreateToken(ctx context.Context, req TokenRequest) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "culqi client not configured")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" || strings.TrimSpace(req.OTP) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number and otp are required")
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "tokens", req, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "culqi token response missing id")
	}
	return result.ID, nil
}

// CreateCharge captures a payment against the provided source.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "culqi client not configured")
	}
	if strings.TrimSpace(req.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source id is required")
	}

	var charge Charge
	if err := c.post(ctx, "charges", req, &charge); err != nil {
		return nil, err
	}
	if charge.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "culqi charge response missing id")
	}
	return &charge, nil
}

// CreateRefund returns the captured amount for a settled charge.
func (c *Client) CreateRefund(ctx context.Context, req RefundRequest) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "culqi client not configured")
	}
	if strings.TrimSpace(req.ChargeID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge id is required")
	}
	return c.post(ctx, "refunds", req, nil)
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// VerifySignature checks the hex HMAC-SHA256 of body against signature using
// constant-time comparison.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c == nil || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("marshal %s request", path))
	}

	endpoint := fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(path))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("build %s request", path))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("execute %s request", path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		apiErr := &APIError{StatusCode: resp.StatusCode, MerchantMessage: merchantMessage(raw)}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, apiErr, fmt.Sprintf("%s request failed", path))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", path))
	}
	return nil
}

func merchantMessage(raw []byte) string {
	var payload struct {
		MerchantMessage string `json:"merchant_message"`
		UserMessage     string `json:"user_message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.MerchantMessage != "" {
			return payload.MerchantMessage
		}
		if payload.UserMessage != "" {
			return payload.UserMessage
		}
	}
	return strings.TrimSpace(string(raw))
}
