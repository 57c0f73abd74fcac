package sender

import (
	"context"
)

// Message is an OTP delivery request.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender defines the interface for delivering OTP messages to a recipient.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}
