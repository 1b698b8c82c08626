package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

type userRepo struct {
	s  *store
	tx *txHandle
}

func (r *userRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.conflictLocked(0, user.Name, user.Email) {
		return nil, common.ErrAlreadyExists
	}
	r.s.t.nextUser++
	user.ID = r.s.t.nextUser
	remember(r.tx, &r.s.t, usersOf, user.ID)
	r.s.t.users[user.ID] = *user
	return user, nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.t.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.t.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) ExistsByNameOrEmail(_ context.Context, name, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.conflictLocked(0, name, email), nil
}

func (r *userRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.users[user.ID]; !ok {
		return common.ErrorNotFound
	}
	if r.conflictLocked(user.ID, user.Name, user.Email) {
		return common.ErrAlreadyExists
	}
	remember(r.tx, &r.s.t, usersOf, user.ID)
	r.s.t.users[user.ID] = *user
	return nil
}

func (r *userRepo) RecordLogin(_ context.Context, id int64, at time.Time, ip string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.t.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	remember(r.tx, &r.s.t, usersOf, id)

	u.Authenticated = true
	u.LastLoginAt = u.CurrentLoginAt
	u.LastLoginIP = u.CurrentLoginIP
	u.CurrentLoginAt = &at
	u.CurrentLoginIP = ip
	u.LoginCount++
	r.s.t.users[id] = u
	return &u, nil
}

// conflictLocked reports whether a user other than self already uses name
// or email.
func (r *userRepo) conflictLocked(self int64, name, email string) bool {
	for id, u := range r.s.t.users {
		if id != self && (u.Name == name || u.Email == email) {
			return true
		}
	}
	return false
}
