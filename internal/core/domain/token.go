package domain

import "time"

// AuthToken is the opaque bearer credential bound to exactly one user.
type AuthToken struct {
	Key       string
	UserID    string
	CreatedAt time.Time
}
