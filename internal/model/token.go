package model

import (
	"time"
)

// RefreshToken represents a stored refresh credential. Only the keyed hash
// of the secret half is persisted; the raw secret exists solely inside the
// opaque string handed to the client.
type RefreshToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	SecretHash string     `json:"-"`
	DeviceInfo *string    `json:"deviceInfo,omitempty"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// IsExpired checks if the refresh credential has expired
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsRevoked checks if the refresh credential has been revoked
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}
