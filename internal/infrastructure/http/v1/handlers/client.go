package handlers

import (
	"github.com/gin-gonic/gin"

	"fakturo/internal/core/apperror"
	"fakturo/internal/core/id"
	"fakturo/internal/domain/client"
	"fakturo/internal/infrastructure/http/v1/dto"
)

// ClientHandler handles HTTP requests for the client catalog.
type ClientHandler struct {
	*BaseHandler
	clients *client.Service
}

// NewClientHandler creates a new client handler.
func NewClientHandler(base *BaseHandler, clients *client.Service) *ClientHandler {
	return &ClientHandler{
		BaseHandler: base,
		clients:     clients,
	}
}

// RegisterRoutes registers client endpoints.
func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// Create handles POST /clients.
func (h *ClientHandler) Create(c *gin.Context) {
	var req dto.CreateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	created, err := h.clients.Create(c.Request.Context(), req.Nickname, req.Billing.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromClient(created))
}

// List handles GET /clients.
func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.clients.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromClients(clients))
}

// Get handles GET /clients/:id.
func (h *ClientHandler) Get(c *gin.Context) {
	clientID, ok := h.parseID(c)
	if !ok {
		return
	}

	found, err := h.clients.Get(c.Request.Context(), clientID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromClient(found))
}

// Update handles PUT /clients/:id.
func (h *ClientHandler) Update(c *gin.Context) {
	clientID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateClientRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.clients.Update(c.Request.Context(), clientID, req.Nickname, req.Billing.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromClient(updated))
}

// Delete handles DELETE /clients/:id.
func (h *ClientHandler) Delete(c *gin.Context) {
	clientID, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.clients.Delete(c.Request.Context(), clientID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

func (h *ClientHandler) parseID(c *gin.Context) (id.ID, bool) {
	clientID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("id", c.Param("id")))
		return id.Nil(), false
	}
	return clientID, true
}
