package memory

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

type roleRepo struct {
	s  *store
	tx *txHandle
}

func (r *roleRepo) Upsert(_ context.Context, role *models.Role) (*models.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, existing := range r.s.t.roles {
		if existing.Name == role.Name {
			role.ID = id
			remember(r.tx, &r.s.t, rolesOf, id)
			r.s.t.roles[id] = *role
			return role, nil
		}
	}
	r.s.t.nextRole++
	role.ID = r.s.t.nextRole
	remember(r.tx, &r.s.t, rolesOf, role.ID)
	r.s.t.roles[role.ID] = *role
	return role, nil
}

func (r *roleRepo) GetByName(_ context.Context, name string) (*models.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, role := range r.s.t.roles {
		if role.Name == name {
			return &role, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *roleRepo) GetByID(_ context.Context, id int64) (*models.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	role, ok := r.s.t.roles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &role, nil
}

func (r *roleRepo) Grant(_ context.Context, userID, roleID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.users[userID]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := r.s.t.roles[roleID]; !ok {
		return common.ErrorNotFound
	}
	key := grantKey{userID: userID, roleID: roleID}
	if _, ok := r.s.t.grants[key]; ok {
		return nil
	}
	r.s.t.nextGrant++
	remember(r.tx, &r.s.t, grantsOf, key)
	r.s.t.grants[key] = r.s.t.nextGrant
	return nil
}

func (r *roleRepo) Revoke(_ context.Context, userID, roleID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := grantKey{userID: userID, roleID: roleID}
	if _, ok := r.s.t.grants[key]; !ok {
		return false, nil
	}
	remember(r.tx, &r.s.t, grantsOf, key)
	delete(r.s.t.grants, key)
	return true, nil
}

func (r *roleRepo) HasRole(_ context.Context, userID, roleID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.t.grants[grantKey{userID: userID, roleID: roleID}]
	return ok, nil
}

func (r *roleRepo) ListNamesByUser(_ context.Context, userID int64) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	names := make([]string, 0)
	for key := range r.s.t.grants {
		if key.userID != userID {
			continue
		}
		if role, ok := r.s.t.roles[key.roleID]; ok {
			names = append(names, role.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}
