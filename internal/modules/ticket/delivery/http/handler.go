package http

import (
	"net/http"
	"strconv"

	ticketDto "anoa.com/coinexchange/internal/modules/ticket/dto"
	ticketService "anoa.com/coinexchange/internal/modules/ticket/service"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/dto"
	"anoa.com/coinexchange/pkg/response"
	"anoa.com/coinexchange/pkg/validator"
	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	service ticketService.TicketService
}

func NewTicketHandler(service ticketService.TicketService) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) CreateTicket(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input ticketDto.CreateTicketRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	ticket, err := h.service.Create(c.Request.Context(), userID, input.Message)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ticketDto.ToTicketResponse(ticket))
}

func (h *TicketHandler) GetMyTickets(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	tickets, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticketDto.ToTicketResponses(tickets)})
}

func (h *TicketHandler) ListOpen(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.OffsetQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}
	query = query.Normalize()

	tickets, total, err := h.service.ListOpen(c.Request.Context(), adminID, query.Limit, query.Offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(ticketDto.ToTicketResponses(tickets), query, total))
}

func (h *TicketHandler) CloseTicket(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ResponseError(c, apperror.ErrTicketNotFound)
		return
	}

	ticket, err := h.service.Close(c.Request.Context(), adminID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticketDto.ToTicketResponse(ticket))
}
