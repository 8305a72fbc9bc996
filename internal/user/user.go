package user

import (
	"strings"
	"time"
)

// User is an account together with its profile fields.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	AvatarSrc    string    `json:"-"`
	AvatarAlt    string    `json:"-"`
	Available    bool      `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}

// Avatar is the image descriptor used in profile responses.
type Avatar struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Profile is the public view of a user.
type Profile struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Avatar   Avatar `json:"avatar"`
}

func (u User) Profile() Profile {
	return Profile{
		FullName: u.FullName(),
		Email:    u.Email,
		Phone:    u.Phone,
		Avatar:   Avatar{Src: u.AvatarSrc, Alt: u.AvatarAlt},
	}
}

// splitName splits on the first run of whitespace. A single word becomes
// the first name.
func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
