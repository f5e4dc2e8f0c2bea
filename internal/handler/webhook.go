package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/kharon-pay/whatsapp-bot/internal/logging"
	"github.com/kharon-pay/whatsapp-bot/internal/messaging"
)

const maxWebhookBody = 1 << 20

// Delivery receipts Twilio posts to the same webhook as inbound messages.
var statusCallbacks = map[string]bool{
	"delivered":   true,
	"read":        true,
	"sent":        true,
	"failed":      true,
	"undelivered": true,
}

type dispatcher interface {
	Handle(ctx context.Context, phone, text string)
}

type WebhookHandler struct {
	bot       dispatcher
	botNumber string
	authToken string
	publicURL string

	wg sync.WaitGroup
}

// NewWebhookHandler builds the inbound message handler. When publicURL is
// empty, X-Twilio-Signature is not checked.
func NewWebhookHandler(bot dispatcher, botNumber, authToken, publicURL string) *WebhookHandler {
	return &WebhookHandler{
		bot:       bot,
		botNumber: botNumber,
		authToken: authToken,
		publicURL: publicURL,
	}
}

func (h *WebhookHandler) ReceiveMessage(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse webhook form", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if h.publicURL != "" {
		sig := r.Header.Get("X-Twilio-Signature")
		if !verifyTwilioSignature(h.publicURL, r.PostForm, sig, h.authToken) {
			log.Warn("webhook signature verification failed")
			RespondAppError(w, ErrInvalidSignature, nil)
			return
		}
	}

	from := r.PostForm.Get("From")
	if from == "" {
		RespondAppError(w, ErrMissingSender, nil)
		return
	}

	if status := deliveryStatus(r.PostForm); status != "" {
		log.Debug("delivery status callback ignored", "status", status, "message_sid", r.PostForm.Get("MessageSid"))
		RespondTwiML(w)
		return
	}

	body := strings.TrimSpace(r.PostForm.Get("Body"))
	if body == "" {
		RespondTwiML(w)
		return
	}

	sender := messaging.NormalizeSender(from)
	if messaging.SameNumber(sender, h.botNumber) {
		log.Debug("message from bot number ignored")
		RespondTwiML(w)
		return
	}

	msgLog := log.With("message_sid", r.PostForm.Get("MessageSid"))
	ctx := logging.WithLogger(context.WithoutCancel(r.Context()), msgLog)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				msgLog.Error("panic in message dispatch", "error", err, "stack", string(debug.Stack()))
			}
		}()
		h.bot.Handle(ctx, sender, body)
	}()

	RespondTwiML(w)
}

// Wait blocks until in-flight dispatches finish or ctx is done.
func (h *WebhookHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func deliveryStatus(form url.Values) string {
	for _, key := range []string{"SmsStatus", "MessageStatus"} {
		if s := strings.ToLower(form.Get(key)); statusCallbacks[s] {
			return s
		}
	}
	return ""
}

func verifyTwilioSignature(publicURL string, form url.Values, signature, authToken string) bool {
	if signature == "" {
		return false
	}
	expected := twilioSignature(publicURL, form, authToken)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// twilioSignature is base64(HMAC-SHA1(authToken, url + sorted key/value pairs)).
func twilioSignature(publicURL string, form url.Values, authToken string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(publicURL)
	for _, k := range keys {
		values := append([]string(nil), form[k]...)
		sort.Strings(values)
		for _, v := range values {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
