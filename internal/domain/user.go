// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36

	DefaultUsername = "Anonymous"
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// NewUser binds the placeholder name until the handshake arrives.
func NewUser(id UserID) *User {
	return &User{ID: id, Username: DefaultUsername}
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

func (u *User) SetUsername(username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	u.Username = username
	return nil
}
