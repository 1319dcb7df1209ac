package http

import (
	"net/http"
	"strconv"

	ledgerDto "anoa.com/coinexchange/internal/modules/ledger/dto"
	ledgerService "anoa.com/coinexchange/internal/modules/ledger/service"
	"anoa.com/coinexchange/pkg/response"
	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	service ledgerService.LedgerService
}

func NewLedgerHandler(service ledgerService.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

func (h *LedgerHandler) GetBalance(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, ledgerDto.ToAccountResponse(user))
}

func (h *LedgerHandler) GetHistory(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	entries, err := h.service.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ledgerDto.ToLedgerEntryResponses(entries)})
}

func (h *LedgerHandler) DeactivateUser(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), adminID, targetID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deactivated"})
}
