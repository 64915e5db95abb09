package user

import "time"

// User is a registered account holder. PasswordHash never leaves the service
// layer; handlers expose Public() instead.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Public is the externally visible projection of a User.
type Public struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public returns the fields safe to return to clients.
func (u User) Public() Public {
	return Public{ID: u.ID, Username: u.Username, Email: u.Email}
}
