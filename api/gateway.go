package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/Domenick1991/airtickets/internal/service/gateway"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userHeader           = "X-User-Name"
	idempotencyKeyHeader = "Idempotency-Key"
)

type GatewayHandler struct {
	service gateway.GatewayUseCase
}

func NewGatewayHandler(service gateway.GatewayUseCase) *GatewayHandler {
	return &GatewayHandler{service: service}
}

type flightResponse struct {
	FlightNumber string    `json:"flightNumber"`
	FromAirport  string    `json:"fromAirport"`
	ToAirport    string    `json:"toAirport"`
	Date         time.Time `json:"date"`
	Price        int64     `json:"price"`
}

type paginationResponse struct {
	Page          int              `json:"page"`
	PageSize      int              `json:"pageSize"`
	TotalElements int64            `json:"totalElements"`
	Items         []flightResponse `json:"items"`
}

type ticketResponse struct {
	TicketUID    uuid.UUID `json:"ticketUid"`
	FlightNumber string    `json:"flightNumber"`
	FromAirport  string    `json:"fromAirport"`
	ToAirport    string    `json:"toAirport"`
	Date         time.Time `json:"date"`
	Price        int64     `json:"price"`
	Status       string    `json:"status"`
}

type privilegeShortInfo struct {
	Balance int64  `json:"balance"`
	Status  string `json:"status"`
}

type userInfoResponse struct {
	Tickets   []ticketResponse   `json:"tickets"`
	Privilege privilegeShortInfo `json:"privilege"`
}

type purchaseRequest struct {
	FlightNumber    string `json:"flightNumber"`
	Price           int64  `json:"price"`
	PaidFromBalance bool   `json:"paidFromBalance"`
}

type purchaseResponse struct {
	TicketUID     uuid.UUID          `json:"ticketUid"`
	FlightNumber  string             `json:"flightNumber"`
	FromAirport   string             `json:"fromAirport"`
	ToAirport     string             `json:"toAirport"`
	Date          time.Time          `json:"date"`
	Price         int64              `json:"price"`
	PaidByMoney   int64              `json:"paidByMoney"`
	PaidByBonuses int64              `json:"paidByBonuses"`
	Status        string             `json:"status"`
	Privilege     privilegeShortInfo `json:"privilege"`
}

type balanceHistory struct {
	Date          time.Time `json:"date"`
	TicketUID     uuid.UUID `json:"ticketUid"`
	BalanceDiff   int64     `json:"balanceDiff"`
	OperationType string    `json:"operationType"`
}

type privilegeInfoResponse struct {
	Balance int64            `json:"balance"`
	Status  string           `json:"status"`
	History []balanceHistory `json:"history"`
}

func (h *GatewayHandler) Register(router *gin.RouterGroup) {
	router.GET("/flights", h.listFlights)

	user := router.Group("", requireUser)
	user.GET("/tickets", h.listTickets)
	user.POST("/tickets", h.purchase)
	user.GET("/tickets/:ticketUid", h.getTicket)
	user.DELETE("/tickets/:ticketUid", h.cancel)
	user.GET("/me", h.me)
	user.GET("/privilege", h.privilege)
}

func requireUser(c *gin.Context) {
	if c.GetHeader(userHeader) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Message: userHeader + " header is required"})
		return
	}
	c.Next()
}

func (h *GatewayHandler) listFlights(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := h.service.ListFlights(c.Request.Context(), page, size)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := paginationResponse{
		Page:          result.Page,
		PageSize:      result.PageSize,
		TotalElements: result.TotalElements,
		Items:         make([]flightResponse, 0, len(result.Items)),
	}
	for _, f := range result.Items {
		resp.Items = append(resp.Items, flightResponse{
			FlightNumber: f.FlightNumber,
			FromAirport:  f.FromAirport.Label(),
			ToAirport:    f.ToAirport.Label(),
			Date:         f.DepartureTime,
			Price:        f.Price,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GatewayHandler) listTickets(c *gin.Context) {
	views, err := h.service.ListTickets(c.Request.Context(), c.GetHeader(userHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTicketResponses(views))
}

func (h *GatewayHandler) getTicket(c *gin.Context) {
	uid, ok := ticketUIDParam(c)
	if !ok {
		return
	}
	view, err := h.service.GetTicket(c.Request.Context(), c.GetHeader(userHeader), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTicketResponse(*view))
}

func (h *GatewayHandler) purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("invalid request body", domain.FieldError{Field: "body", Error: err.Error()}))
		return
	}

	receipt, err := h.service.Purchase(c.Request.Context(), domain.PurchaseRequest{
		Username:        c.GetHeader(userHeader),
		FlightNumber:    req.FlightNumber,
		Price:           req.Price,
		PaidFromBalance: req.PaidFromBalance,
		IdempotencyKey:  c.GetHeader(idempotencyKeyHeader),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, purchaseResponse{
		TicketUID:     receipt.TicketUID,
		FlightNumber:  receipt.FlightNumber,
		FromAirport:   receipt.FromAirport,
		ToAirport:     receipt.ToAirport,
		Date:          receipt.Date,
		Price:         receipt.Price,
		PaidByMoney:   receipt.PaidByMoney,
		PaidByBonuses: receipt.PaidByBonuses,
		Status:        string(receipt.Status),
		Privilege:     privilegeShortInfo{Balance: receipt.Privilege.Balance, Status: string(receipt.Privilege.Status)},
	})
}

func (h *GatewayHandler) cancel(c *gin.Context) {
	uid, ok := ticketUIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Cancel(c.Request.Context(), c.GetHeader(userHeader), uid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GatewayHandler) me(c *gin.Context) {
	info, err := h.service.Me(c.Request.Context(), c.GetHeader(userHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userInfoResponse{
		Tickets:   toTicketResponses(info.Tickets),
		Privilege: privilegeShortInfo{Balance: info.Privilege.Balance, Status: string(info.Privilege.Status)},
	})
}

func (h *GatewayHandler) privilege(c *gin.Context) {
	info, err := h.service.Privilege(c.Request.Context(), c.GetHeader(userHeader))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := privilegeInfoResponse{
		Balance: info.Balance,
		Status:  string(info.Status),
		History: make([]balanceHistory, 0, len(info.History)),
	}
	for _, tx := range info.History {
		resp.History = append(resp.History, balanceHistory{
			Date:          tx.Datetime,
			TicketUID:     tx.TicketUID,
			BalanceDiff:   tx.BalanceDiff,
			OperationType: string(tx.OperationType),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func toTicketResponse(v gateway.TicketView) ticketResponse {
	return ticketResponse{
		TicketUID:    v.TicketUID,
		FlightNumber: v.FlightNumber,
		FromAirport:  v.FromAirport,
		ToAirport:    v.ToAirport,
		Date:         v.Date,
		Price:        v.Price,
		Status:       string(v.Status),
	}
}

func toTicketResponses(views []gateway.TicketView) []ticketResponse {
	resp := make([]ticketResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toTicketResponse(v))
	}
	return resp
}
