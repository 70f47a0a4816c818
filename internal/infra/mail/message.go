// Package mail turns mail requests into messages and hands them to an outbound transport.
package mail

import (
	"net/url"
	"time"
)

// Template names understood by the mail worker consuming the queue.
const (
	TemplateVerification  = "email_verification"
	TemplatePasswordReset = "password_reset"
	TemplateWelcome       = "welcome"
)

// Message is the JSON document published for each outbound mail.
type Message struct {
	To        string    `json:"to"`
	Nick      string    `json:"nick"`
	Subject   string    `json:"subject"`
	Template  string    `json:"template"`
	Link      string    `json:"link,omitempty"`
	Brand     string    `json:"brand"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// linkBuilder renders the frontend links embedded in mails.
type linkBuilder struct {
	frontendURL string
	brand       string
}

func (b linkBuilder) verificationLink(token string) string {
	return b.frontendURL + "/verify-email?token=" + url.QueryEscape(token)
}

func (b linkBuilder) resetLink(token string) string {
	return b.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

func (b linkBuilder) verification(email, nick, token string) *Message {
	return &Message{
		To:       email,
		Nick:     nick,
		Subject:  "Confirm your email address for " + b.brand,
		Template: TemplateVerification,
		Link:     b.verificationLink(token),
		Brand:    b.brand,
	}
}

func (b linkBuilder) passwordReset(email, nick, token string) *Message {
	return &Message{
		To:       email,
		Nick:     nick,
		Subject:  "Reset your " + b.brand + " password",
		Template: TemplatePasswordReset,
		Link:     b.resetLink(token),
		Brand:    b.brand,
	}
}

func (b linkBuilder) welcome(email, nick string) *Message {
	return &Message{
		To:       email,
		Nick:     nick,
		Subject:  "Welcome to " + b.brand,
		Template: TemplateWelcome,
		Link:     b.frontendURL,
		Brand:    b.brand,
	}
}
