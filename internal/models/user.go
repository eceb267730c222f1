package models

import (
	"time"
)

// User is the minimal identity record the backend keeps. Authentication and
// token issuance live in the upstream gateway; requests arrive with an
// already-authenticated user id.
type User struct {
	ID        int       `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
