package services

import (
	"context"

	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

// Session binds a user to the transport session once the credential store
// has recorded the login or logout.
type Session interface {
	Login(ctx context.Context, user *models.User, remember, force bool) error
	Logout(ctx context.Context, user *models.User) error
}

// NopSession is used by stateless transports where the bearer token is the
// session.
type NopSession struct{}

func (NopSession) Login(context.Context, *models.User, bool, bool) error { return nil }

func (NopSession) Logout(context.Context, *models.User) error { return nil }
