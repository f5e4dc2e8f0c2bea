package messaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const whatsappPrefix = "whatsapp:"

type TwilioClient struct {
	apiURL     string
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
}

func NewTwilioClient(apiURL, accountSID, authToken, from string) *TwilioClient {
	return &TwilioClient{
		apiURL:     apiURL,
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// WhatsAppAddress turns a bare or "+"-prefixed number into a Twilio WhatsApp address.
func WhatsAppAddress(to string) string {
	switch {
	case strings.HasPrefix(to, whatsappPrefix):
		return to
	case strings.HasPrefix(to, "+"):
		return whatsappPrefix + to
	default:
		return whatsappPrefix + "+" + to
	}
}

// NormalizeSender strips the channel prefix from an inbound sender.
func NormalizeSender(from string) string {
	return strings.TrimPrefix(from, whatsappPrefix)
}

// SameNumber compares two addresses ignoring the channel prefix and "+".
func SameNumber(a, b string) bool {
	clean := func(s string) string {
		return strings.ReplaceAll(NormalizeSender(s), "+", "")
	}
	return clean(a) != "" && clean(a) == clean(b)
}

func (c *TwilioClient) Send(ctx context.Context, to, body string) error {
	form := url.Values{
		"From": {c.from},
		"To":   {WhatsAppAddress(to)},
		"Body": {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("Send: build request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Send: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
