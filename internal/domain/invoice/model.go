// Package invoice provides the invoice aggregate and the sequencing,
// ordering and persistence contracts built around it.
package invoice

import (
	"time"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/types"
)

// Invoice is the persisted unit. The number is assigned exactly once, either
// sequentially by Create or explicitly by Import, and never changes afterwards.
type Invoice struct {
	// Number is the decimal invoice number. Kept as int64 internally so
	// ordering, neighbors and pagination compare numerically; the contract
	// boundary exchanges it as a string.
	Number int64 `json:"number,string"`

	Content Content `json:"content"`

	// IsCorrected flips to true on the first successful update and stays
	// true forever.
	IsCorrected bool `json:"isCorrected"`

	// IsLegacy marks records inserted through the historical import path.
	IsLegacy bool `json:"isLegacy"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Content is everything on an invoice except its number and flags. Update
// replaces it wholesale; there is no field-level patching.
type Content struct {
	Date         time.Time        `json:"date"`
	Seller       Address          `json:"seller"`
	Buyer        Address          `json:"buyer"`
	Lines        []LineItem       `json:"lines"`
	BankTransfer BankTransferInfo `json:"bankTransfer"`
}

// LineItem is one ordered position on an invoice.
type LineItem struct {
	Description string       `json:"description"`
	Amount      types.Amount `json:"amount"`
}

// Address is a flattened postal address used for both seller and buyer.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	TaxID      string `json:"taxId,omitempty"`
}

// BankTransferInfo carries the payment details printed on the invoice.
type BankTransferInfo struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
}

// NewInvoice creates an invoice with the given number and content.
func NewInvoice(number int64, content Content) *Invoice {
	now := time.Now().UTC()
	return &Invoice{
		Number:    number,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddLine appends a line item.
func (c *Content) AddLine(description string, amount types.Amount) {
	c.Lines = append(c.Lines, LineItem{Description: description, Amount: amount})
}

// TotalAmount sums the line amounts in their shared currency. The shared
// currency is enforced by the composing layer, not here; with no lines the
// zero Amount is returned.
func (c Content) TotalAmount() types.Amount {
	if len(c.Lines) == 0 {
		return types.Amount{}
	}
	total := int64(0)
	for _, line := range c.Lines {
		total += line.Amount.Cents
	}
	return types.NewAmount(total, c.Lines[0].Amount.Currency)
}

// Normalize returns a copy with the date truncated to its calendar day (UTC
// midnight), so stored dates and ordering comparisons always agree.
func (c Content) Normalize() Content {
	c.Date = DateOnly(c.Date)
	return c
}

// Validate checks the fields this core depends on. Line currency agreement
// and non-empty line lists are the composing layer's concern.
func (c Content) Validate() error {
	if c.Date.IsZero() {
		return apperror.NewValidation("invoice date is required").
			WithDetail("field", "date")
	}
	for i, line := range c.Lines {
		if line.Amount.Cents < 0 {
			return apperror.NewValidation("line amount must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}
