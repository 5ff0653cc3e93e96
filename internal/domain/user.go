package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the local projection of a platform account. Authentication and
// profile management live in the platform's auth service; this service only
// reads the rows it needs and owns the coins balance column.
type User struct {
	ID          uuid.UUID `json:"id"           db:"id"`
	Username    string    `json:"username"     db:"username"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Coins       int64     `json:"coins"        db:"coins"`
	IsActive    bool      `json:"is_active"    db:"is_active"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"   db:"updated_at"`
}

// PublicProfile is the user view exposed on leaderboards and responses.
type PublicProfile struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
}

// Profile returns the public view of the user.
func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
}
