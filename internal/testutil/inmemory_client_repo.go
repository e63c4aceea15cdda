package testutil

import (
	"context"
	"sort"
	"sync"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/id"
	"fakturo/internal/domain/client"
)

// InMemoryClientRepo implements client.Repository for tests.
type InMemoryClientRepo struct {
	mu   sync.Mutex
	byID map[id.ID]*client.Client
}

var _ client.Repository = (*InMemoryClientRepo)(nil)

// NewInMemoryClientRepo creates an empty in-memory client repository.
func NewInMemoryClientRepo() *InMemoryClientRepo {
	return &InMemoryClientRepo{byID: make(map[id.ID]*client.Client)}
}

func (r *InMemoryClientRepo) Insert(ctx context.Context, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Nickname == c.Nickname {
			return apperror.NewDuplicate("client", "nickname", c.Nickname)
		}
	}
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *InMemoryClientRepo) GetByID(ctx context.Context, clientID id.ID) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[clientID]
	if !ok {
		return nil, apperror.NewNotFound("client", clientID)
	}
	cp := *c
	return &cp, nil
}

func (r *InMemoryClientRepo) GetByNickname(ctx context.Context, nickname string) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.byID {
		if c.Nickname == nickname {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("client", nickname)
}

func (r *InMemoryClientRepo) List(ctx context.Context) ([]*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*client.Client, 0, len(r.byID))
	for _, c := range r.byID {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out, nil
}

func (r *InMemoryClientRepo) Update(ctx context.Context, c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[c.ID]; !ok {
		return apperror.NewNotFound("client", c.ID)
	}
	for _, existing := range r.byID {
		if existing.ID != c.ID && existing.Nickname == c.Nickname {
			return apperror.NewDuplicate("client", "nickname", c.Nickname)
		}
	}
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *InMemoryClientRepo) Delete(ctx context.Context, clientID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[clientID]; !ok {
		return apperror.NewNotFound("client", clientID)
	}
	delete(r.byID, clientID)
	return nil
}
