package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/logging"
	"github.com/dmitrijs2005/flashboard/internal/server/auth"
	"github.com/dmitrijs2005/flashboard/internal/server/config"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/memory"
)

const testPassword = "Secret123"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PasswordHashRounds = 1000
	return cfg
}

type fixture struct {
	mem    *memory.Manager
	tokens *TokenService
	users  *UserService
	codec  *auth.BearerCodec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	mem := memory.NewManager()
	codec := auth.NewBearerCodec(cfg.SecretKey)
	log := logging.NewNop()

	ts := NewTokenService(mem, codec, cfg, log)
	var seq atomic.Int64
	ts.seed = func() (int, error) { return int(seq.Add(1)), nil }

	us := NewUserService(mem, ts, cfg, log)

	if err := us.SeedRoles(context.Background(), []models.Role{
		{Name: "user", Description: "regular user"},
		{Name: "admin", Description: "administrator"},
	}); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}
	return &fixture{mem: mem, tokens: ts, users: us, codec: codec}
}

// register creates a user and returns it with its activation token.
func (f *fixture) register(t *testing.T, name, email string) (*models.User, *models.Token) {
	t.Helper()
	u, tok, err := f.users.RegisterUser(context.Background(), name, email, testPassword)
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	return u, tok
}

// confirmed registers and activates a user.
func (f *fixture) confirmed(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, tok := f.register(t, name, email)
	if err := f.users.ConfirmUser(context.Background(), ByID(u.ID), tok.Token); err != nil {
		t.Fatalf("ConfirmUser: %v", err)
	}
	return u
}

// shiftClock moves the token service clock by d.
func (f *fixture) shiftClock(d time.Duration) {
	f.tokens.now = func() time.Time { return time.Now().Add(d) }
}
