package model

import (
	"time"
)

// User represents the core user entity
type User struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	Email                   string     `json:"email"`
	PasswordHash            *string    `json:"-"` // nil for Google-only accounts
	IsVerified              bool       `json:"isVerified"`
	IsGoogleUser            bool       `json:"isGoogleUser"`
	VerificationToken       *string    `json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// HasPassword reports whether the account can log in with a password.
// Google-only accounts have no password hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// GoogleTokens holds the delegated credential a user granted at Google
// sign-in. The access token is used to send mass mail through the user's
// own Gmail account.
type GoogleTokens struct {
	UserID      string    `json:"userId"`
	AccessToken string    `json:"-"`
	Scope       string    `json:"scope"`
	ExpiresAt   time.Time `json:"expiresAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsExpired checks if the delegated credential has expired
func (t *GoogleTokens) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// CSVFile represents an uploaded recipient sheet
type CSVFile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	FileName  string    `json:"fileName"`
	URL       string    `json:"url"`
	PublicID  string    `json:"publicId"`
	RowCount  int       `json:"rowCount"`
	CreatedAt time.Time `json:"uploadedAt"`
}

// Template represents a saved subject/body pair
type Template struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
