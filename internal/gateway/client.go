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
	"time"

	"github.com/kharon-pay/whatsapp-bot/internal/logging"
)

const serviceName = "whatsapp-bot"

type Endpoints struct {
	CreateAccount     string
	CreateController  string
	Address           string
	Balance           string
	Rate              string
	VerifyBank        string
	ListBanks         string
	SaveBank          string
	InitiateOfframp   string
	Payment           string
	TransactionStatus string
}

type Client struct {
	endpoints  Endpoints
	apiKey     string
	httpClient *http.Client
}

func NewClient(endpoints Endpoints, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoints: endpoints,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, query url.Values, payload, out any) error {
	log := logging.FromContext(ctx)

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: marshal: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-service", serviceName)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send: %w", op, err)
	}
	defer resp.Body.Close()

	log.Debug("backend response received",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
