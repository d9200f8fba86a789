package models

import "time"

// RefreshToken stores the opaque rotated refresh tokens issued at login.
type RefreshToken struct {
	ID           string     `db:"id" json:"id"`
	TechnicianID string     `db:"technician_id" json:"technician_id"`
	Token        string     `db:"token" json:"-"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	Revoked      bool       `db:"revoked" json:"revoked"`
	RevokedAt    *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress    string     `db:"ip_address" json:"-"`
	UserAgent    string     `db:"user_agent" json:"-"`
}
