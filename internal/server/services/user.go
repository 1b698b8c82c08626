package services

import (
	"context"
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

// UserService implements registration, email confirmation, login/logout and
// role membership on top of the repositories.
type UserService struct {
	repos         repomanager.RepositoryManager
	tokens        *TokenService
	hasher        *auth.PasswordHasher
	session       Session
	logger        logging.Logger
	defaultRole   string
	activationTTL time.Duration
	now           func() time.Time
}

// UserOption customises a UserService.
type UserOption func(*UserService)

// WithSession installs the transport session binder used by LoginUser and
// LogoutUser. The default is NopSession.
func WithSession(s Session) UserOption {
	return func(us *UserService) { us.session = s }
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(m repomanager.RepositoryManager, ts *TokenService, cfg *config.Config, l logging.Logger, opts ...UserOption) *UserService {
	s := &UserService{
		repos:         m,
		tokens:        ts,
		hasher:        auth.NewPasswordHasher(cfg.PasswordSalt, cfg.PasswordHashRounds),
		session:       NopSession{},
		logger:        l.With("module", "user_service"),
		defaultRole:   cfg.DefaultRole,
		activationTTL: cfg.ActivationTokenTTL,
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadRawUser resolves ref to a user record. Resolved refs are returned as
// is; unknown users yield ErrUserNotFound.
func (s *UserService) LoadRawUser(ctx context.Context, db dbx.DBTX, ref UserRef) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch r := ref.(type) {
	case Resolved:
		if r.User == nil {
			return nil, ErrUserNotFound
		}
		return r.User, nil
	case ByEmail:
		user, err = s.repos.Users(db).GetByEmail(ctx, string(r))
	case ByID:
		user, err = s.repos.Users(db).GetByID(ctx, int64(r))
	default:
		return nil, ErrUserNotFound
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("users.LoadRawUser: %w", err)
	}
	return user, nil
}

// LoadUser is LoadRawUser outside any caller transaction.
func (s *UserService) LoadUser(ctx context.Context, ref UserRef) (*models.User, error) {
	return s.LoadRawUser(ctx, s.repos.Conn(), ref)
}

// LoadValidUser resolves ref and checks password. Inactive users are refused
// unless includeInactive is set. An unknown user and a wrong password both
// yield ErrInvalidCredentials.
func (s *UserService) LoadValidUser(ctx context.Context, ref UserRef, password string, includeInactive bool) (*models.User, error) {
	user, err := s.LoadRawUser(ctx, s.repos.Conn(), ref)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Debug(ctx, "login for unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PrivateSalt, user.Password) {
		s.logger.Debug(ctx, "password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.Active && !includeInactive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// LoginUser rotates the login telemetry, marks the user authenticated and
// binds the session. force lets an inactive user hold a session.
func (s *UserService) LoginUser(ctx context.Context, ref UserRef, remember bool, loginIP string, force bool) (*models.User, error) {
	user, err := s.LoadRawUser(ctx, s.repos.Conn(), ref)
	if err != nil {
		return nil, err
	}
	if !user.Active && !force {
		return nil, ErrInactiveUser
	}

	logged, err := s.repos.Users(s.repos.Conn()).RecordLogin(ctx, user.ID, s.now().UTC(), loginIP)
	if err != nil {
		s.logger.Error(ctx, "login update failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpdateUser, err)
	}
	user = logged
	if err := s.session.Login(ctx, user, remember, force); err != nil {
		return nil, fmt.Errorf("users.LoginUser: %w", err)
	}
	s.logger.Info(ctx, "user logged in", "user_id", user.ID, "ip", loginIP, "login_count", user.LoginCount)
	return user, nil
}

// LogoutUser clears the authenticated flag and unbinds the session.
func (s *UserService) LogoutUser(ctx context.Context, ref UserRef) error {
	user, err := s.LoadRawUser(ctx, s.repos.Conn(), ref)
	if err != nil {
		return err
	}

	user.Authenticated = false
	if err := s.repos.Users(s.repos.Conn()).Update(ctx, user); err != nil {
		s.logger.Error(ctx, "logout update failed", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrUpdateUser, err)
	}
	if err := s.session.Logout(ctx, user); err != nil {
		return fmt.Errorf("users.LogoutUser: %w", err)
	}
	s.logger.Info(ctx, "user logged out", "user_id", user.ID)
	return nil
}

// RegisterUser creates an inactive user with an activation token and the
// default role. The three writes commit together or not at all.
func (s *UserService) RegisterUser(ctx context.Context, name, email, password string) (*models.User, *models.Token, error) {
	if !auth.IsStrong(password) {
		return nil, nil, ErrWeakPassword
	}

	exists, err := s.repos.Users(s.repos.Conn()).ExistsByNameOrEmail(ctx, name, email)
	if err != nil {
		return nil, nil, fmt.Errorf("users.RegisterUser: %w", err)
	}
	if exists {
		return nil, nil, ErrUserExists
	}

	salt, err := auth.GenerateRandomSalt(auth.PrivateSaltSize)
	if err != nil {
		return nil, nil, fmt.Errorf("users.RegisterUser: %w", err)
	}
	hash, err := s.hasher.Hash(password, salt)
	if err != nil {
		return nil, nil, fmt.Errorf("users.RegisterUser: %w", err)
	}

	user := &models.User{
		Name:        name,
		Email:       email,
		Password:    hash,
		PrivateSalt: salt,
		SignupAt:    s.now().UTC(),
	}
	var token *models.Token

	err = s.repos.WithTx(ctx, dbx.Steps(
		func(ctx context.Context, tx dbx.DBTX) error {
			if _, err := s.repos.Users(tx).Create(ctx, user); err != nil {
				if errors.Is(err, common.ErrAlreadyExists) {
					return ErrUserExists
				}
				return fmt.Errorf("%w: %w", ErrAddUser, err)
			}
			return nil
		},
		func(ctx context.Context, tx dbx.DBTX) error {
			t, err := s.tokens.Create(ctx, tx, models.TokenActivation, user.ID, s.activationTTL, 0)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrAddActivation, err)
			}
			token = t
			return nil
		},
		func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.GrantRole(ctx, tx, Resolved{User: user}, RoleByName(s.defaultRole)); err != nil {
				return fmt.Errorf("%w: %w", ErrGrantDefaultRole, err)
			}
			return nil
		},
	))
	if err != nil {
		s.logger.Warn(ctx, "registration rolled back", "email", email, "error", err)
		return nil, nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "email", email)
	return user, token, nil
}

// ConfirmUser consumes the activation token of the user and activates the
// account. The token check and the activation commit together; a token that
// was already verified once is refused with ErrActivationUsed.
func (s *UserService) ConfirmUser(ctx context.Context, ref UserRef, token string) error {
	err := s.repos.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.LoadRawUser(ctx, tx, ref)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrActivationUser
			}
			return err
		}

		t, err := s.tokens.Verify(ctx, tx, models.TokenActivation, user.ID, token)
		if err != nil {
			if errors.Is(err, common.ErrInvalidToken) {
				return ErrActivationToken
			}
			return err
		}
		if t.AccessCount != 1 {
			return ErrActivationUsed
		}

		now := s.now().UTC()
		user.Active = true
		user.ConfirmedAt = &now
		if err := s.repos.Users(tx).Update(ctx, user); err != nil {
			return fmt.Errorf("%w: %w", ErrConfirmUpdate, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Debug(ctx, "confirmation refused", "error", err)
		return err
	}
	return nil
}

// HasRole reports whether the user holds the role. Missing users, missing
// roles and storage failures all report false.
func (s *UserService) HasRole(ctx context.Context, ref UserRef, role RoleRef) bool {
	db := s.repos.Conn()
	user, err := s.LoadRawUser(ctx, db, ref)
	if err != nil {
		return false
	}
	r, err := s.loadRole(ctx, db, role)
	if err != nil {
		return false
	}
	ok, err := s.repos.Roles(db).HasRole(ctx, user.ID, r.ID)
	if err != nil {
		s.logger.Error(ctx, "role lookup failed", "user_id", user.ID, "error", err)
		return false
	}
	return ok
}

// RoleNames lists the names of the roles held by the user.
func (s *UserService) RoleNames(ctx context.Context, user *models.User) ([]string, error) {
	return s.repos.Roles(s.repos.Conn()).ListNamesByUser(ctx, user.ID)
}

// GrantRole links the user and the role on db.
func (s *UserService) GrantRole(ctx context.Context, db dbx.DBTX, ref UserRef, role RoleRef) error {
	user, err := s.LoadRawUser(ctx, db, ref)
	if err != nil {
		return err
	}
	r, err := s.loadRole(ctx, db, role)
	if err != nil {
		return err
	}
	if err := s.repos.Roles(db).Grant(ctx, user.ID, r.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("users.GrantRole: %w", err)
	}
	return nil
}

// RevokeRole removes the link between the user and the role. It fails with
// ErrRoleNotGranted when there was none.
func (s *UserService) RevokeRole(ctx context.Context, db dbx.DBTX, ref UserRef, role RoleRef) error {
	user, err := s.LoadRawUser(ctx, db, ref)
	if err != nil {
		return err
	}
	r, err := s.loadRole(ctx, db, role)
	if err != nil {
		return err
	}
	removed, err := s.repos.Roles(db).Revoke(ctx, user.ID, r.ID)
	if err != nil {
		return fmt.Errorf("users.RevokeRole: %w", err)
	}
	if !removed {
		return ErrRoleNotGranted
	}
	return nil
}

// SeedRoles creates the given roles or refreshes their descriptions.
func (s *UserService) SeedRoles(ctx context.Context, roles []models.Role) error {
	return s.repos.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Roles(tx)
		for i := range roles {
			r := roles[i]
			if _, err := repo.Upsert(ctx, &r); err != nil {
				return fmt.Errorf("users.SeedRoles %q: %w", r.Name, err)
			}
		}
		return nil
	})
}

// EnsureAdmin registers an administrator when no user has the email yet,
// confirms it with its own activation token and grants every role in
// roleNames. Existing users are left as is.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string, roleNames ...string) error {
	user, err := s.repos.Users(s.repos.Conn()).GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		var token *models.Token
		user, token, err = s.RegisterUser(ctx, name, email, password)
		if err != nil {
			return err
		}
		if err := s.ConfirmUser(ctx, ByID(user.ID), token.Token); err != nil {
			return err
		}
		s.logger.Info(ctx, "bootstrap administrator created", "user_id", user.ID)
	default:
		return fmt.Errorf("users.EnsureAdmin: %w", err)
	}

	return s.repos.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for _, role := range roleNames {
			if s.HasRole(ctx, Resolved{User: user}, RoleByName(role)) {
				continue
			}
			if err := s.GrantRole(ctx, tx, ByID(user.ID), RoleByName(role)); err != nil {
				return fmt.Errorf("users.EnsureAdmin %q: %w", role, err)
			}
			s.logger.Info(ctx, "bootstrap role granted", "user_id", user.ID, "role", role)
		}
		return nil
	})
}

func (s *UserService) loadRole(ctx context.Context, db dbx.DBTX, ref RoleRef) (*models.Role, error) {
	var (
		role *models.Role
		err  error
	)
	switch r := ref.(type) {
	case RoleByName:
		role, err = s.repos.Roles(db).GetByName(ctx, string(r))
	case RoleByID:
		role, err = s.repos.Roles(db).GetByID(ctx, int64(r))
	default:
		return nil, ErrRoleNotFound
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("users.loadRole: %w", err)
	}
	return role, nil
}
