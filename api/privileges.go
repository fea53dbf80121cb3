package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/Domenick1991/airtickets/internal/service/privileges"
	"github.com/gin-gonic/gin"
)

type PrivilegeHandler struct {
	service privileges.PrivilegeUseCase
}

func NewPrivilegeHandler(service privileges.PrivilegeUseCase) *PrivilegeHandler {
	return &PrivilegeHandler{service: service}
}

func (h *PrivilegeHandler) Register(router *gin.RouterGroup) {
	router.POST("/privilege", h.createAccount)
	router.GET("/privilege/:username", h.get)
	router.GET("/privilege/:username/history", h.history)
	router.GET("/privilege/:username/history/:ticketUid", h.historyEntry)
	router.POST("/privilege/:username/rollback/:ticketUid", h.rollback)

	router.POST("/accounts/:id/debit", h.mutation(h.service.Debit))
	router.POST("/accounts/:id/credit", h.mutation(h.service.Credit))
	router.POST("/accounts/:id/debit-available", h.mutation(h.service.DebitUpToAvailable))
}

func (h *PrivilegeHandler) get(c *gin.Context) {
	account, err := h.service.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *PrivilegeHandler) createAccount(c *gin.Context) {
	var input privileges.CreateAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	account, err := h.service.CreateAccount(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *PrivilegeHandler) history(c *gin.Context) {
	history, err := h.service.GetHistory(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	if history == nil {
		history = []domain.PrivilegeTransaction{}
	}
	c.JSON(http.StatusOK, history)
}

func (h *PrivilegeHandler) historyEntry(c *gin.Context) {
	uid, ok := ticketUIDParam(c)
	if !ok {
		return
	}
	entry, err := h.service.GetHistoryEntry(c.Request.Context(), c.Param("username"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *PrivilegeHandler) rollback(c *gin.Context) {
	uid, ok := ticketUIDParam(c)
	if !ok {
		return
	}
	mutation, err := h.service.Rollback(c.Request.Context(), c.Param("username"), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutation)
}

type mutationFunc func(ctx context.Context, input privileges.MutationInput) (*domain.BalanceMutation, error)

func (h *PrivilegeHandler) mutation(apply mutationFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			badRequest(c, "invalid account id")
			return
		}
		var input privileges.MutationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}
		input.AccountID = accountID

		mutation, err := apply(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mutation)
	}
}
