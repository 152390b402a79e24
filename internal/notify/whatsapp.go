package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/souq-labs/backend-souq/internal/obs"
)

// Sender delivers WhatsApp messages through the gateway HTTP API.
type Sender struct {
	BaseURL       string
	APIKey        string
	CountryPrefix string
	Client        *http.Client
	Logger        zerolog.Logger
}

// NewSender constructs a Sender with a traced HTTP client.
func NewSender(baseURL, apiKey, countryPrefix string, logger zerolog.Logger) *Sender {
	return &Sender{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		APIKey:        apiKey,
		CountryPrefix: countryPrefix,
		Client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Logger: logger,
	}
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send posts one message to the gateway. Phone numbers are normalized to
// international form first; unusable numbers are reported as errors so the
// task queue can surface them.
func (s *Sender) Send(ctx context.Context, phone, message string) error {
	if s == nil || s.BaseURL == "" {
		return errors.New("notify: whatsapp gateway not configured")
	}
	normalized, ok := NormalizePhone(phone, s.CountryPrefix)
	if !ok {
		s.countOutcome("invalid_phone")
		return fmt.Errorf("notify: unusable phone number %q", phone)
	}

	body, err := json.Marshal(sendRequest{Phone: normalized, Message: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.APIKey)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		s.countOutcome("error")
		return fmt.Errorf("notify: whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.countOutcome("rejected")
		return fmt.Errorf("notify: whatsapp gateway returned %d", resp.StatusCode)
	}
	s.countOutcome("sent")
	s.Logger.Debug().Str("phone", normalized).Msg("whatsapp message sent")
	return nil
}

func (s *Sender) countOutcome(outcome string) {
	if obs.WhatsAppSendTotal != nil {
		obs.WhatsAppSendTotal.WithLabelValues(outcome).Inc()
	}
}

// NormalizePhone converts a locally written phone number into international
// digits-only form. A leading zero is replaced with the country prefix, and a
// bare nine-digit mobile number gets the prefix prepended. Returns false when
// no plausible number remains.
func NormalizePhone(phone, countryPrefix string) (string, bool) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()
	if number == "" {
		return "", false
	}
	switch {
	case strings.HasPrefix(number, "0"):
		number = countryPrefix + number[1:]
	case len(number) == 9:
		number = countryPrefix + number
	}
	if len(number) < 10 {
		return "", false
	}
	return number, true
}
