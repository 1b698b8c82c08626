// Package services contains the server-side business logic. TokenService
// issues, verifies, rotates and purges tokens; UserService drives
// registration, confirmation, login/logout and role membership.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"github.com/dmitrijs2005/flashboard/internal/dbx"
	"github.com/dmitrijs2005/flashboard/internal/logging"
	"github.com/dmitrijs2005/flashboard/internal/server/auth"
	"github.com/dmitrijs2005/flashboard/internal/server/config"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
	"github.com/dmitrijs2005/flashboard/internal/server/repositories/repomanager"
)

// activationTokenSize is the number of random bytes in an activation token.
const activationTokenSize = 128

// TokenPair bundles a short-lived access token and a long-lived refresh token
// that share one pairing seed.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService manages the token lifecycle. Methods that take a dbx.DBTX run
// on that handle so callers can fold them into a larger unit of work; pass
// the manager's Conn() to run them on their own.
type TokenService struct {
	repos      repomanager.RepositoryManager
	codec      *auth.BearerCodec
	logger     logging.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration

	now  func() time.Time
	seed func() (int, error)
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(m repomanager.RepositoryManager, codec *auth.BearerCodec, cfg *config.Config, l logging.Logger) *TokenService {
	return &TokenService{
		repos:      m,
		codec:      codec,
		logger:     l.With("module", "token_service"),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
		seed:       randomSeed,
	}
}

// Create mints and stores one token valid for ttl from now. Access and
// refresh tokens are signed bearer tokens carrying owner and seed;
// activation tokens are random strings.
func (s *TokenService) Create(ctx context.Context, db dbx.DBTX, category models.TokenCategory, ownerID int64, ttl time.Duration, seed int) (*models.Token, error) {
	const op = "tokens.Create"

	if category.IsBearer() && ownerID <= 0 {
		return nil, ErrInvalidOwner
	}

	now := s.now().UTC()
	t := &models.Token{
		Category:   category,
		OwnerID:    ownerID,
		CreateOn:   now,
		ExpiryOn:   now.Add(ttl),
		RandomSeed: seed,
	}

	var err error
	if category.IsBearer() {
		t.Token, err = s.codec.Encode(ownerID, seed, t.CreateOn, t.ExpiryOn)
	} else {
		t.Token, err = common.MakeRandURLString(activationTokenSize)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.repos.Tokens(db).Create(ctx, t); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// GetLastOne returns the newest live token of the category for the owner.
// Older live tokens are shadowed by it. Returns common.ErrorNotFound when
// there is none.
func (s *TokenService) GetLastOne(ctx context.Context, db dbx.DBTX, category models.TokenCategory, ownerID int64) (*models.Token, error) {
	return s.repos.Tokens(db).GetLastOne(ctx, category, ownerID, s.now().UTC())
}

// Verify checks token against the latest live token of the category for
// ownerID and records the access. An ownerID of 0 on a bearer category is
// taken from the signed payload.
//
// Failures are ErrTokenInvalid (payload did not decode), ErrInvalidOwner
// and ErrInvalidOrExpiredToken; storage errors are returned wrapped.
func (s *TokenService) Verify(ctx context.Context, db dbx.DBTX, category models.TokenCategory, ownerID int64, token string) (*models.Token, error) {
	const op = "tokens.Verify"

	if ownerID == 0 && category.IsBearer() {
		claims, err := s.codec.Decode(token)
		if err != nil {
			s.logger.Debug(ctx, "bearer token rejected", "category", category.String(), "error", err)
			return nil, ErrTokenInvalid
		}
		ownerID = claims.UserID
	}
	if ownerID <= 0 {
		return nil, ErrInvalidOwner
	}

	now := s.now().UTC()
	repo := s.repos.Tokens(db)

	last, err := repo.GetLastOne(ctx, category, ownerID, now)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if subtle.ConstantTimeCompare([]byte(last.Token), []byte(token)) != 1 {
		return nil, ErrInvalidOrExpiredToken
	}

	if err := repo.Touch(ctx, last, now); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// purged concurrently
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return last, nil
}

// VerifyBearer verifies an access or refresh token outside any caller
// transaction, taking the owner from the signed payload.
func (s *TokenService) VerifyBearer(ctx context.Context, category models.TokenCategory, token string) (*models.Token, error) {
	return s.Verify(ctx, s.repos.Conn(), category, 0, token)
}

// Purge deletes the exact token row and reports whether exactly one row went.
func (s *TokenService) Purge(ctx context.Context, db dbx.DBTX, category models.TokenCategory, ownerID int64, token string) (bool, error) {
	n, err := s.repos.Tokens(db).Delete(ctx, category, ownerID, token)
	if err != nil {
		return false, fmt.Errorf("tokens.Purge: %w", err)
	}
	return n == 1, nil
}

// Revoke deletes a single verified token.
func (s *TokenService) Revoke(ctx context.Context, t *models.Token) (bool, error) {
	return s.Purge(ctx, s.repos.Conn(), t.Category, t.OwnerID, t.Token)
}

// GenerateAuthTokens mints an access/refresh pair for userID sharing one
// fresh random seed. Both rows are written in one transaction.
func (s *TokenService) GenerateAuthTokens(ctx context.Context, userID int64) (*TokenPair, error) {
	var pair *TokenPair
	err := s.repos.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		pair, err = s.generatePair(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// PurgeAuthTokens deletes the given refresh token and the access token
// minted with it. It reports success only when each deletion removed
// exactly one row.
func (s *TokenService) PurgeAuthTokens(ctx context.Context, db dbx.DBTX, refresh *models.Token) (bool, error) {
	const op = "tokens.PurgeAuthTokens"

	if refresh == nil || refresh.Category != models.TokenRefresh {
		return false, nil
	}
	repo := s.repos.Tokens(db)

	nRefresh, err := repo.Delete(ctx, models.TokenRefresh, refresh.OwnerID, refresh.Token)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	nAccess, err := repo.DeleteBySeed(ctx, models.TokenAccess, refresh.OwnerID, refresh.RandomSeed)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return nRefresh == 1 && nAccess == 1, nil
}

// Rotate retires a verified refresh token together with its access token
// and mints a new pair, all in one transaction.
func (s *TokenService) Rotate(ctx context.Context, refresh *models.Token) (*TokenPair, error) {
	var pair *TokenPair
	err := s.repos.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.PurgeAuthTokens(ctx, tx, refresh)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidOrExpiredToken
		}
		pair, err = s.generatePair(ctx, tx, refresh.OwnerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *TokenService) generatePair(ctx context.Context, tx dbx.DBTX, userID int64) (*TokenPair, error) {
	seed, err := s.seed()
	if err != nil {
		return nil, fmt.Errorf("tokens.generatePair: %w", err)
	}

	access, err := s.Create(ctx, tx, models.TokenAccess, userID, s.accessTTL, seed)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Create(ctx, tx, models.TokenRefresh, userID, s.refreshTTL, seed)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, nil
}

func randomSeed() (int, error) {
	v, err := common.RandUint16()
	return int(v), err
}
