package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"fakturo/internal/core/apperror"
	"fakturo/internal/domain/client"
	"fakturo/internal/domain/invoice"
	"fakturo/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles HTTP requests for invoices.
type InvoiceHandler struct {
	*BaseHandler
	invoices *invoice.Service
	clients  *client.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, invoices *invoice.Service, clients *client.Service) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		invoices:    invoices,
		clients:     clients,
	}
}

// RegisterRoutes registers invoice endpoints.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.POST("/import", h.Import)
	rg.GET("", h.Latest)
	rg.GET("/next-number", h.PeekNextNumber)
	rg.GET("/:number", h.Get)
	rg.PUT("/:number", h.Update)
	rg.GET("/:number/revisions", h.Revisions)
}

// Create handles POST /invoices - issue an invoice under the next
// sequential number.
func (h *InvoiceHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.InvoiceContentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	content, err := h.buildContent(ctx, &req)
	if err != nil {
		h.Error(c, err)
		return
	}

	inv, err := h.invoices.Create(ctx, content)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromInvoice(inv))
}

// Import handles POST /invoices/import - register a pre-existing invoice
// under its original number.
func (h *InvoiceHandler) Import(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ImportInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	content, err := h.buildContent(ctx, &req.InvoiceContentRequest)
	if err != nil {
		h.Error(c, err)
		return
	}

	inv, err := h.invoices.Import(ctx, content, req.Number)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromInvoice(inv))
}

// Get handles GET /invoices/:number.
func (h *InvoiceHandler) Get(c *gin.Context) {
	inv, err := h.invoices.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// Latest handles GET /invoices - newest-first listing with cursor
// pagination.
func (h *InvoiceHandler) Latest(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 0)
	cursor := c.Query("cursor")

	page, err := h.invoices.Latest(c.Request.Context(), limit, cursor)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPage(page))
}

// Update handles PUT /invoices/:number - replace the content of an
// existing invoice.
func (h *InvoiceHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.InvoiceContentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	content, err := h.buildContent(ctx, &req)
	if err != nil {
		h.Error(c, err)
		return
	}

	inv, err := h.invoices.Update(ctx, c.Param("number"), content)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// PeekNextNumber handles GET /invoices/next-number.
func (h *InvoiceHandler) PeekNextNumber(c *gin.Context) {
	next, err := h.invoices.PeekNextNumber(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NextNumberResponse{NextNumber: next})
}

// Revisions handles GET /invoices/:number/revisions.
func (h *InvoiceHandler) Revisions(c *gin.Context) {
	number := c.Param("number")

	revs, err := h.invoices.Revisions(c.Request.Context(), number)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromRevisions(number, revs))
}

func (h *InvoiceHandler) buildContent(ctx context.Context, req *dto.InvoiceContentRequest) (invoice.Content, error) {
	buyer, err := h.resolveBuyer(ctx, req)
	if err != nil {
		return invoice.Content{}, err
	}
	return req.ToContent(buyer)
}

// resolveBuyer settles the buyer block: an inline address wins, otherwise
// the nickname is looked up in the client catalog.
func (h *InvoiceHandler) resolveBuyer(ctx context.Context, req *dto.InvoiceContentRequest) (invoice.Address, error) {
	if req.Buyer != nil {
		return req.Buyer.ToDomain(), nil
	}
	if req.BuyerNickname != "" {
		cl, err := h.clients.Resolve(ctx, req.BuyerNickname)
		if err != nil {
			return invoice.Address{}, err
		}
		return cl.Billing, nil
	}
	return invoice.Address{}, apperror.NewValidation("either buyer or buyerNickname is required").
		WithDetail("field", "buyer")
}
