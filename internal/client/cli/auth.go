package cli

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/flashboard/internal/client/client"
	"github.com/dmitrijs2005/flashboard/internal/common"
)

// getSimpleText and getPassword point to the interactive input helpers and
// are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

type credentials struct {
	email    string
	password []byte
}

func (a *App) askCredentials() (credentials, error) {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return credentials{}, err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return credentials{}, err
	}
	return credentials{email: email, password: password}, nil
}

// Login asks for credentials and opens a session. When the server cannot be
// reached the prompt switches to offline mode.
func (a *App) Login(ctx context.Context) error {
	c, err := a.askCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(c.password)

	if err := a.client.Login(ctx, c.email, string(c.password)); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ctx, ModeOffline)
		}
		return err
	}

	a.mu.Lock()
	a.email = c.email
	a.mu.Unlock()
	a.setMode(ctx, ModeOnline)

	printlnFn("Logged in as", c.email)
	return nil
}

// Logout ends the session on the server and forgets the local tokens even
// when the server call fails.
func (a *App) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)

	a.mu.Lock()
	a.email = ""
	a.mu.Unlock()

	if err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		return err
	}
	printlnFn("Tokens refreshed")
	return nil
}

// Register creates a new account. The server only allows it for
// administrators; the returned activation token is printed so the new user
// can confirm the account.
func (a *App) Register(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotLoggedIn
	}

	name, err := getSimpleText(a.reader, "Enter user name", os.Stdout)
	if err != nil {
		return err
	}
	c, err := a.askCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(c.password)

	token, err := a.client.Register(ctx, name, c.email, string(c.password))
	if err != nil {
		return err
	}

	printlnFn("Registered", c.email)
	printlnFn("Activation token:", token)
	return nil
}

func (a *App) Confirm(ctx context.Context) error {
	c, err := a.askCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(c.password)

	token, err := getSimpleText(a.reader, "Enter activation token", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.client.Confirm(ctx, c.email, string(c.password), token); err != nil {
		return err
	}
	printlnFn("Account confirmed")
	return nil
}
