package services

import "github.com/dmitrijs2005/flashboard/internal/common"

// Token verification reasons.
var (
	ErrTokenInvalid          = common.NewError(common.ErrInvalidToken, "invalid token")
	ErrInvalidOwner          = common.NewError(common.ErrInvalidToken, "invalid owner")
	ErrInvalidOrExpiredToken = common.NewError(common.ErrInvalidToken, "invalid or expired token")
)

// User service failures. The messages are returned to API clients.
var (
	ErrWeakPassword       = common.NewError(common.ErrValidation, "Password is not strong enough (must include upper case, lower case and digit)")
	ErrUserExists         = common.NewError(common.ErrAlreadyExists, "User name or email is already exist")
	ErrInvalidCredentials = common.NewError(common.ErrorUnauthorized, "Invalid username or password")
	ErrInactiveUser       = common.NewError(common.ErrorUnauthorized, "Inactive user")
	ErrUserNotFound       = common.NewError(common.ErrorNotFound, "User not found")
	ErrRoleNotFound       = common.NewError(common.ErrorNotFound, "Role not found")
	ErrRoleNotGranted     = common.NewError(common.ErrorNotFound, "Role is not granted")

	ErrAddUser          = common.NewError(common.ErrorInternal, "Failed to add user into user table")
	ErrAddActivation    = common.NewError(common.ErrorInternal, "Failed to add activation token")
	ErrGrantDefaultRole = common.NewError(common.ErrorInternal, "Failed to grant default role")
	ErrUpdateUser       = common.NewError(common.ErrorInternal, "Failed to update user")

	ErrActivationUser  = common.NewError(common.ErrorUnauthorized, "Invalid user with activation token")
	ErrActivationToken = common.NewError(common.ErrInvalidToken, "Invalid activation token")
	ErrActivationUsed  = common.NewError(common.ErrInvalidToken, "Used activation token")
	ErrConfirmUpdate   = common.NewError(common.ErrorInternal, "Failed to update actived flag")
)
