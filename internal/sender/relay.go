package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	apperrors "github.com/cryptpayme/twofa/pkg/errors"
	"github.com/cryptpayme/twofa/pkg/httpclient"
)

// RelaySender delivers OTP messages through an HTTP mail relay. Calls go
// through a circuit breaker so a failing relay does not pile up requests.
type RelaySender struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewRelaySender creates a sender that posts messages to the relay at baseURL.
func NewRelaySender(client *httpclient.CircuitBreakerClient, baseURL string, logger *slog.Logger) *RelaySender {
	return &RelaySender{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Name returns the name of this sender.
func (s *RelaySender) Name() string {
	return "relay"
}

// Send posts the message to the relay's /send endpoint. Any transport error,
// open circuit, or non-2xx response is reported as a delivery failure.
func (s *RelaySender) Send(ctx context.Context, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal relay message: %w", err)
	}

	resp, err := s.client.Post(ctx, s.baseURL+"/send", "application/json", bytes.NewReader(payload))
	if err != nil {
		s.logger.ErrorContext(ctx, "mail relay request failed",
			slog.String("to", msg.To),
			slog.String("error", err.Error()),
		)
		return apperrors.DeliveryFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.ErrorContext(ctx, "mail relay rejected message",
			slog.String("to", msg.To),
			slog.Int("status", resp.StatusCode),
		)
		return apperrors.DeliveryFailed(fmt.Errorf("relay returned %d: %s", resp.StatusCode, string(body)))
	}

	return nil
}
