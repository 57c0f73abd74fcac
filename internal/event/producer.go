package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/cryptpayme/twofa/pkg/kafka"
)

// Kafka topic constants for two-factor auth domain events.
const (
	TopicOtpRequested = "twofa.otp.requested"
	TopicOtpVerified  = "twofa.otp.verified"
	TopicWalletLinked = "twofa.wallet.linked"
	TopicLogout       = "twofa.auth.logout"
)

// Aggregate type constant.
const AggregateTypeIdentity = "identity"

// Source identifier for events originating from this service.
const SourceTwofaService = "twofa-service"

// OtpRequestedData is the payload for an otp.requested event.
type OtpRequestedData struct {
	Email     string    `json:"email"`
	Sender    string    `json:"sender"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OtpVerifiedData is the payload for an otp.verified event.
type OtpVerifiedData struct {
	Email    string `json:"email"`
	DeviceID string `json:"device_id,omitempty"`
}

// WalletLinkedData is the payload for a wallet.linked event.
type WalletLinkedData struct {
	Email  string `json:"email"`
	Wallet string `json:"wallet"`
}

// LogoutData is the payload for an auth.logout event.
type LogoutData struct {
	Email string `json:"email"`
}

// Producer publishes two-factor auth domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOtpRequested publishes an otp.requested event.
func (p *Producer) PublishOtpRequested(ctx context.Context, email, senderName string, expiresAt time.Time) error {
	data := OtpRequestedData{
		Email:     email,
		Sender:    senderName,
		ExpiresAt: expiresAt,
	}

	event, err := pkgkafka.NewEvent(TopicOtpRequested, email, AggregateTypeIdentity, SourceTwofaService, data)
	if err != nil {
		return fmt.Errorf("create otp.requested event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOtpRequested, event); err != nil {
		return fmt.Errorf("publish otp.requested event: %w", err)
	}

	p.logger.DebugContext(ctx, "published otp.requested event",
		slog.String("email", email),
	)

	return nil
}

// PublishOtpVerified publishes an otp.verified event.
func (p *Producer) PublishOtpVerified(ctx context.Context, email, deviceID string) error {
	data := OtpVerifiedData{
		Email:    email,
		DeviceID: deviceID,
	}

	event, err := pkgkafka.NewEvent(TopicOtpVerified, email, AggregateTypeIdentity, SourceTwofaService, data)
	if err != nil {
		return fmt.Errorf("create otp.verified event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOtpVerified, event); err != nil {
		return fmt.Errorf("publish otp.verified event: %w", err)
	}

	p.logger.DebugContext(ctx, "published otp.verified event",
		slog.String("email", email),
	)

	return nil
}

// PublishWalletLinked publishes a wallet.linked event.
func (p *Producer) PublishWalletLinked(ctx context.Context, email, wallet string) error {
	data := WalletLinkedData{
		Email:  email,
		Wallet: wallet,
	}

	event, err := pkgkafka.NewEvent(TopicWalletLinked, email, AggregateTypeIdentity, SourceTwofaService, data)
	if err != nil {
		return fmt.Errorf("create wallet.linked event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicWalletLinked, event); err != nil {
		return fmt.Errorf("publish wallet.linked event: %w", err)
	}

	p.logger.DebugContext(ctx, "published wallet.linked event",
		slog.String("email", email),
		slog.String("wallet", wallet),
	)

	return nil
}

// PublishLogout publishes an auth.logout event.
func (p *Producer) PublishLogout(ctx context.Context, email string) error {
	data := LogoutData{Email: email}

	event, err := pkgkafka.NewEvent(TopicLogout, email, AggregateTypeIdentity, SourceTwofaService, data)
	if err != nil {
		return fmt.Errorf("create auth.logout event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicLogout, event); err != nil {
		return fmt.Errorf("publish auth.logout event: %w", err)
	}

	p.logger.DebugContext(ctx, "published auth.logout event",
		slog.String("email", email),
	)

	return nil
}
