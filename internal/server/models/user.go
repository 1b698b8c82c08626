// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an identity record. Active is set once the email address has been
// confirmed; Authenticated tracks whether the user currently holds a session.
type User struct {
	ID             int64
	Name           string
	Email          string
	Password       string
	PrivateSalt    string
	Active         bool
	Authenticated  bool
	LastLoginAt    *time.Time
	LastLoginIP    string
	CurrentLoginAt *time.Time
	CurrentLoginIP string
	LoginCount     int
	SignupAt       time.Time
	ConfirmedAt    *time.Time
}
