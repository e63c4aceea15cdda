package client

import (
	"context"

	"fakturo/internal/core/id"
)

// Repository defines persistence for the client catalog.
type Repository interface {
	// Insert persists a new client. Fails with a duplicate error when the
	// nickname is already used.
	Insert(ctx context.Context, c *Client) error

	// GetByID retrieves a client. NotFound when absent.
	GetByID(ctx context.Context, clientID id.ID) (*Client, error)

	// GetByNickname retrieves a client by its unique nickname. NotFound
	// when absent.
	GetByNickname(ctx context.Context, nickname string) (*Client, error)

	// List returns all clients ordered by nickname.
	List(ctx context.Context) ([]*Client, error)

	// Update replaces the stored client. NotFound when absent.
	Update(ctx context.Context, c *Client) error

	// Delete removes a client. NotFound when absent.
	Delete(ctx context.Context, clientID id.ID) error
}
