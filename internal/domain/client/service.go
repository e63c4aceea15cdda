package client

import (
	"context"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/id"
	"fakturo/internal/core/tx"
	"fakturo/internal/domain/invoice"
	"fakturo/pkg/logger"
)

// Service provides business logic for the client catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new client service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create registers a new client. The nickname must be unused.
func (s *Service) Create(ctx context.Context, nickname string, billing invoice.Address) (*Client, error) {
	c := NewClient(nickname, billing)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		taken, err := s.nicknameTaken(ctx, c.Nickname, id.Nil())
		if err != nil {
			return err
		}
		if taken {
			return apperror.NewDuplicate("client", "nickname", c.Nickname)
		}
		return s.repo.Insert(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "client created", "id", c.ID, "nickname", c.Nickname)
	return c, nil
}

// Get retrieves a client by id.
func (s *Service) Get(ctx context.Context, clientID id.ID) (*Client, error) {
	return s.repo.GetByID(ctx, clientID)
}

// Resolve retrieves a client by nickname.
func (s *Service) Resolve(ctx context.Context, nickname string) (*Client, error) {
	return s.repo.GetByNickname(ctx, nickname)
}

// List returns all clients ordered by nickname.
func (s *Service) List(ctx context.Context) ([]*Client, error) {
	return s.repo.List(ctx)
}

// Update replaces the nickname and billing details of a client. Invoices
// already issued keep the buyer block they were created with.
func (s *Service) Update(ctx context.Context, clientID id.ID, nickname string, billing invoice.Address) (*Client, error) {
	var updated *Client

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, clientID)
		if err != nil {
			return err
		}

		if nickname != existing.Nickname {
			taken, err := s.nicknameTaken(ctx, nickname, clientID)
			if err != nil {
				return err
			}
			if taken {
				return apperror.NewDuplicate("client", "nickname", nickname)
			}
		}

		existing.Nickname = nickname
		existing.Billing = billing
		if err := existing.Validate(); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, existing); err != nil {
			return err
		}

		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "client updated", "id", updated.ID, "nickname", updated.Nickname)
	return updated, nil
}

// Delete removes a client.
func (s *Service) Delete(ctx context.Context, clientID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, clientID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "client deleted", "id", clientID)
	return nil
}

// nicknameTaken checks if the nickname is used by another client.
func (s *Service) nicknameTaken(ctx context.Context, nickname string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.GetByNickname(ctx, nickname)
	if err != nil {
		// Not found is the good case; other errors must be propagated.
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != excludeID, nil
}
