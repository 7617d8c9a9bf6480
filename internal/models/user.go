package models

import "time"

// User represents a registered account
type User struct {
	ID           string    `json:"id" badgerhold:"key"`
	Email        string    `json:"email" badgerhold:"unique"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // argon2id encoded hash, never serialized
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicUser is the representation safe to return to clients
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips credential material from a user record
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
