package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"custodial-wallet-backend/config"
	"custodial-wallet-backend/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// PaystackGateway implements ports.PaymentGateway against the Paystack API.
type PaystackGateway struct {
	baseURL    string
	secretKey  string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewPaystackGateway creates a new Paystack gateway client.
func NewPaystackGateway(cfg config.GatewayConfig, httpClient HTTPClient, log zerolog.Logger) *PaystackGateway {
	return &PaystackGateway{
		baseURL:    cfg.BaseURL,
		secretKey:  cfg.SecretKey,
		httpClient: httpClient,
		log:        log,
	}
}

type initializeRequest struct {
	Email    string         `json:"email"`
	Amount   int64          `json:"amount"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction opens a hosted payment session. The returned
// reference is the provider's handle; the webhook settles against it.
func (g *PaystackGateway) InitializeTransaction(ctx context.Context, email string, amount int64, metadata map[string]any) (*ports.GatewaySession, error) {
	body, err := json.Marshal(initializeRequest{
		Email:    email,
		Amount:   amount,
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.log.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("payment gateway rejected initialize request")
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var parsed initializeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if !parsed.Status {
		return nil, fmt.Errorf("gateway declined: %s", parsed.Message)
	}
	if parsed.Data.Reference == "" {
		return nil, fmt.Errorf("gateway response missing reference")
	}

	return &ports.GatewaySession{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		AccessCode:       parsed.Data.AccessCode,
		Reference:        parsed.Data.Reference,
		Raw:              raw,
	}, nil
}
