package dto

import (
	"time"

	"github.com/samber/lo"

	"fakturo/internal/domain/client"
)

// CreateClientRequest registers a new client.
type CreateClientRequest struct {
	Nickname string     `json:"nickname" binding:"required"`
	Billing  AddressDTO `json:"billing" binding:"required"`
}

// UpdateClientRequest replaces the nickname and billing details of a client.
type UpdateClientRequest struct {
	Nickname string     `json:"nickname" binding:"required"`
	Billing  AddressDTO `json:"billing" binding:"required"`
}

// ClientResponse represents a client in API responses.
type ClientResponse struct {
	ID        string     `json:"id"`
	Nickname  string     `json:"nickname"`
	Billing   AddressDTO `json:"billing"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FromClient converts a domain client to its response DTO.
func FromClient(c *client.Client) *ClientResponse {
	return &ClientResponse{
		ID:        c.ID.String(),
		Nickname:  c.Nickname,
		Billing:   FromAddress(c.Billing),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ClientListResponse lists all clients.
type ClientListResponse struct {
	Items []*ClientResponse `json:"items"`
}

// FromClients converts domain clients to the list response.
func FromClients(clients []*client.Client) ClientListResponse {
	return ClientListResponse{
		Items: lo.Map(clients, func(c *client.Client, _ int) *ClientResponse {
			return FromClient(c)
		}),
	}
}
