package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

type tokenRepo struct {
	s  *store
	tx *txHandle
}

func (r *tokenRepo) Create(_ context.Context, t *models.Token) (*models.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t.OwnerID > 0 {
		if _, ok := r.s.t.users[t.OwnerID]; !ok {
			return nil, common.ErrorNotFound
		}
	}
	for _, existing := range r.s.t.tokens {
		if existing.Token == t.Token {
			return nil, common.ErrAlreadyExists
		}
	}
	r.s.t.nextToken++
	t.ID = r.s.t.nextToken
	remember(r.tx, &r.s.t, tokensOf, t.ID)
	r.s.t.tokens[t.ID] = *t
	return t, nil
}

func (r *tokenRepo) GetLastOne(_ context.Context, category models.TokenCategory, ownerID int64, now time.Time) (*models.Token, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var last *models.Token
	for _, t := range r.s.t.tokens {
		if t.Category != category || t.OwnerID != ownerID || !t.LiveAt(now) {
			continue
		}
		if last == nil || t.CreateOn.After(last.CreateOn) || (t.CreateOn.Equal(last.CreateOn) && t.ID > last.ID) {
			cp := t
			last = &cp
		}
	}
	if last == nil {
		return nil, common.ErrorNotFound
	}
	return last, nil
}

func (r *tokenRepo) Touch(_ context.Context, t *models.Token, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.t.tokens[t.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if stored.FirstAccessOn == nil {
		first := now
		stored.FirstAccessOn = &first
	}
	last := now
	stored.LastAccessOn = &last
	stored.AccessCount++
	remember(r.tx, &r.s.t, tokensOf, t.ID)
	r.s.t.tokens[t.ID] = stored

	t.FirstAccessOn = stored.FirstAccessOn
	t.LastAccessOn = stored.LastAccessOn
	t.AccessCount = stored.AccessCount
	return nil
}

func (r *tokenRepo) Delete(_ context.Context, category models.TokenCategory, ownerID int64, token string) (int64, error) {
	return r.deleteWhere(func(t models.Token) bool {
		return t.Category == category && t.OwnerID == ownerID && t.Token == token
	}), nil
}

func (r *tokenRepo) DeleteBySeed(_ context.Context, category models.TokenCategory, ownerID int64, seed int) (int64, error) {
	return r.deleteWhere(func(t models.Token) bool {
		return t.Category == category && t.OwnerID == ownerID && t.RandomSeed == seed
	}), nil
}

func (r *tokenRepo) deleteWhere(match func(models.Token) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.t.tokens {
		if match(t) {
			remember(r.tx, &r.s.t, tokensOf, id)
			delete(r.s.t.tokens, id)
			n++
		}
	}
	return n
}
