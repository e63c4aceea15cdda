// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"fakturo/internal/domain/invoice"
)

// AddressDTO carries a postal address block.
type AddressDTO struct {
	Name       string `json:"name" binding:"required"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	TaxID      string `json:"taxId,omitempty"`
}

// ToDomain converts the address to its domain form.
func (a AddressDTO) ToDomain() invoice.Address {
	return invoice.Address{
		Name:       a.Name,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		TaxID:      a.TaxID,
	}
}

// FromAddress converts a domain address to its DTO form.
func FromAddress(a invoice.Address) AddressDTO {
	return AddressDTO{
		Name:       a.Name,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		TaxID:      a.TaxID,
	}
}

// BankTransferDTO carries the payment details printed on an invoice.
type BankTransferDTO struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
}

// AmountDTO is a decimal amount with its currency, e.g. {"123.45", "EUR"}.
type AmountDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
