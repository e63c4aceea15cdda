// Package client provides the client catalog. Clients are the recurring
// buyers invoices are issued to; their billing details prefill the buyer
// block of new invoices.
package client

import (
	"strings"
	"time"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/id"
	"fakturo/internal/domain/invoice"
)

// Client represents a recurring buyer, addressed by a short nickname.
type Client struct {
	ID id.ID `json:"id"`

	// Nickname is the handle used to reference the client. Unique.
	Nickname string `json:"nickname"`

	// Billing is copied onto invoices issued to this client. Invoices keep
	// their copy; later edits here never touch issued invoices.
	Billing invoice.Address `json:"billing"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewClient creates a client with a fresh id.
func NewClient(nickname string, billing invoice.Address) *Client {
	now := time.Now().UTC()
	return &Client{
		ID:        id.New(),
		Nickname:  nickname,
		Billing:   billing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks required fields.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.Nickname) == "" {
		return apperror.NewValidation("nickname is required").
			WithDetail("field", "nickname")
	}
	if len(c.Nickname) > 100 {
		return apperror.NewValidation("nickname must not exceed 100 characters").
			WithDetail("field", "nickname")
	}
	if strings.TrimSpace(c.Billing.Name) == "" {
		return apperror.NewValidation("billing name is required").
			WithDetail("field", "billing.name")
	}
	return nil
}
