package client

import "context"

// Client is the API surface the CLI drives.
type Client interface {
	Ping(ctx context.Context) error
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	// Register creates a user as the logged-in administrator and returns the
	// activation token.
	Register(ctx context.Context, name, email, password string) (string, error)
	Confirm(ctx context.Context, email, password, token string) error
	LoggedIn() bool
}
