package rbac

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

// ErrAccessDenied is returned when the user holds none of the allowed roles.
var ErrAccessDenied = common.NewError(common.ErrForbidden, "Permission denied")

// RoleChecker lists the roles a user currently holds.
type RoleChecker interface {
	RoleNames(ctx context.Context, user *models.User) ([]string, error)
}

// Gate checks users against a Policy.
type Gate struct {
	policy  Policy
	checker RoleChecker
}

func NewGate(p Policy, c RoleChecker) *Gate {
	return &Gate{policy: p, checker: c}
}

// CheckAccess allows the user when they hold at least one role authorised
// for any of the modules. A nil user is denied. Role lookup failures are
// returned as they are, so callers can tell them from a denial.
func (g *Gate) CheckAccess(ctx context.Context, user *models.User, modules ...string) error {
	if user == nil {
		return ErrAccessDenied
	}
	held, err := g.checker.RoleNames(ctx, user)
	if err != nil {
		return fmt.Errorf("rbac: role lookup for user %d: %w", user.ID, err)
	}
	if !g.policy.Allows(held, modules...) {
		return ErrAccessDenied
	}
	return nil
}
