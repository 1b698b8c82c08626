package models

// Role is a named permission group.
type Role struct {
	ID          int64
	Name        string
	Description string
}

// UserRole links a user to a role.
type UserRole struct {
	ID     int64
	UserID int64
	RoleID int64
}
