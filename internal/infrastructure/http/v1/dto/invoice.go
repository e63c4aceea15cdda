package dto

import (
	"time"

	"github.com/samber/lo"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/types"
	"fakturo/internal/domain/invoice"
)

// --- Request DTOs ---

// InvoiceContentRequest is the editable part of an invoice. Create, import
// and update all exchange it. The buyer comes either inline or resolved
// from a client nickname; the handler settles that before the content
// reaches the domain.
type InvoiceContentRequest struct {
	Date          time.Time         `json:"date" binding:"required"`
	Seller        AddressDTO        `json:"seller" binding:"required"`
	Buyer         *AddressDTO       `json:"buyer,omitempty"`
	BuyerNickname string            `json:"buyerNickname,omitempty"`
	Lines         []LineItemRequest `json:"lines" binding:"required,min=1,dive"`
	BankTransfer  BankTransferDTO   `json:"bankTransfer"`
}

// LineItemRequest represents a line in create/import/update requests.
// Amount is a decimal string, e.g. "123.45".
type LineItemRequest struct {
	Description string `json:"description" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
}

// ToContent converts the request to domain content. All lines must parse to
// whole cents and share one currency.
func (r *InvoiceContentRequest) ToContent(buyer invoice.Address) (invoice.Content, error) {
	content := invoice.Content{
		Date:   r.Date,
		Seller: r.Seller.ToDomain(),
		Buyer:  buyer,
		BankTransfer: invoice.BankTransferInfo{
			BankName:      r.BankTransfer.BankName,
			AccountNumber: r.BankTransfer.AccountNumber,
		},
	}

	currency := ""
	for i, line := range r.Lines {
		amount, err := types.ParseAmount(line.Amount, line.Currency)
		if err != nil {
			return invoice.Content{}, apperror.NewValidation("invalid line amount").
				WithDetail("lineNo", i+1).
				WithDetail("error", err.Error())
		}
		if currency == "" {
			currency = amount.Currency
		} else if amount.Currency != currency {
			return invoice.Content{}, apperror.NewValidation("all lines must use the same currency").
				WithDetail("lineNo", i+1).
				WithDetail("expected", currency).
				WithDetail("got", amount.Currency)
		}
		content.AddLine(line.Description, amount)
	}

	return content, nil
}

// ImportInvoiceRequest registers a pre-existing invoice under its original
// number.
type ImportInvoiceRequest struct {
	Number string `json:"number" binding:"required"`
	InvoiceContentRequest
}

// --- Response DTOs ---

// LineItemResponse represents a line in API responses.
type LineItemResponse struct {
	LineNo      int    `json:"lineNo"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// ContentResponse is the content block shared by invoice and revision
// responses.
type ContentResponse struct {
	Date         time.Time          `json:"date"`
	Seller       AddressDTO         `json:"seller"`
	Buyer        AddressDTO         `json:"buyer"`
	Lines        []LineItemResponse `json:"lines"`
	BankTransfer BankTransferDTO    `json:"bankTransfer"`
	TotalAmount  AmountDTO          `json:"totalAmount"`
}

// InvoiceResponse represents an invoice in API responses.
type InvoiceResponse struct {
	Number string `json:"number"`
	ContentResponse
	IsCorrected bool      `json:"isCorrected"`
	IsLegacy    bool      `json:"isLegacy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromInvoice converts a domain invoice to its response DTO.
func FromInvoice(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		Number:          invoice.FormatNumber(inv.Number),
		ContentResponse: fromContent(inv.Content),
		IsCorrected:     inv.IsCorrected,
		IsLegacy:        inv.IsLegacy,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func fromContent(c invoice.Content) ContentResponse {
	lines := lo.Map(c.Lines, func(line invoice.LineItem, i int) LineItemResponse {
		return LineItemResponse{
			LineNo:      i + 1,
			Description: line.Description,
			Amount:      line.Amount.Decimal().StringFixed(2),
			Currency:    line.Amount.Currency,
		}
	})

	total := c.TotalAmount()
	return ContentResponse{
		Date:   c.Date,
		Seller: FromAddress(c.Seller),
		Buyer:  FromAddress(c.Buyer),
		Lines:  lines,
		BankTransfer: BankTransferDTO{
			BankName:      c.BankTransfer.BankName,
			AccountNumber: c.BankTransfer.AccountNumber,
		},
		TotalAmount: AmountDTO{
			Amount:   total.Decimal().StringFixed(2),
			Currency: total.Currency,
		},
	}
}

// InvoicePageResponse is one page of the newest-first listing. NextCursor is
// absent once the oldest invoice has been reached.
type InvoicePageResponse struct {
	Items      []*InvoiceResponse `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// FromPage converts a domain page to its response DTO.
func FromPage(page invoice.Page) InvoicePageResponse {
	return InvoicePageResponse{
		Items: lo.Map(page.Items, func(inv *invoice.Invoice, _ int) *InvoiceResponse {
			return FromInvoice(inv)
		}),
		NextCursor: page.NextCursor,
	}
}

// NextNumberResponse reports the number the next creation would receive.
type NextNumberResponse struct {
	NextNumber string `json:"nextNumber"`
}

// RevisionResponse is one archived content snapshot.
type RevisionResponse struct {
	ID       string `json:"id"`
	Revision int    `json:"revision"`
	ContentResponse
	CreatedAt time.Time `json:"createdAt"`
}

// RevisionListResponse lists the archived snapshots of one invoice, oldest
// first.
type RevisionListResponse struct {
	InvoiceNumber string              `json:"invoiceNumber"`
	Revisions     []*RevisionResponse `json:"revisions"`
}

// FromRevisions converts domain revisions to the list response.
func FromRevisions(number string, revs []*invoice.Revision) RevisionListResponse {
	return RevisionListResponse{
		InvoiceNumber: number,
		Revisions: lo.Map(revs, func(rev *invoice.Revision, _ int) *RevisionResponse {
			return &RevisionResponse{
				ID:              rev.ID.String(),
				Revision:        rev.Revision,
				ContentResponse: fromContent(rev.Content),
				CreatedAt:       rev.CreatedAt,
			}
		}),
	}
}
