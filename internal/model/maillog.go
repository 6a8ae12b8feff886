package model

import (
	"time"
)

// MailStatus is the outcome of a single send attempt
type MailStatus string

const (
	MailStatusSuccess MailStatus = "success"
	MailStatusFailed  MailStatus = "failed"
)

// MailLog records one attempted send to one recipient. Exactly one row is
// written per attempted send, whether it succeeded or failed.
type MailLog struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	RecipientEmail string     `json:"recipientEmail"`
	Subject        string     `json:"subject"`
	Status         MailStatus `json:"status"`
	ErrorMessage   *string    `json:"errorMessage,omitempty"`
	SentAt         time.Time  `json:"sentAt"`
}
