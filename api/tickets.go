package api

import (
	"net/http"

	"github.com/Domenick1991/airtickets/internal/service/tickets"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TicketHandler struct {
	service tickets.TicketUseCase
}

func NewTicketHandler(service tickets.TicketUseCase) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.listByUsername)
	router.GET("/:ticketUid", h.get)
	router.DELETE("/:ticketUid", h.delete)
	router.PATCH("/:ticketUid/cancel", h.cancel)
}

func (h *TicketHandler) create(c *gin.Context) {
	var input tickets.CreateTicketInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	ticket, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) listByUsername(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		badRequest(c, "username is required")
		return
	}
	result, err := h.service.ListByUsername(c.Request.Context(), username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TicketHandler) get(c *gin.Context) {
	uid, ok := ticketUIDParam(c)
	if !ok {
		return
	}
	ticket, err := h.service.GetByUID(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) delete(c *gin.Context) {
	uid, ok := ticketUIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), uid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TicketHandler) cancel(c *gin.Context) {
	uid, ok := ticketUIDParam(c)
	if !ok {
		return
	}
	ticket, err := h.service.Cancel(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func ticketUIDParam(c *gin.Context) (uuid.UUID, bool) {
	uid, err := uuid.Parse(c.Param("ticketUid"))
	if err != nil {
		badRequest(c, "invalid ticket uid")
		return uuid.Nil, false
	}
	return uid, true
}
