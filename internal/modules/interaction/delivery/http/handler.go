package http

import (
	"net/http"
	"strconv"

	"anoa.com/coinexchange/internal/entity"
	interactionDto "anoa.com/coinexchange/internal/modules/interaction/dto"
	interactionService "anoa.com/coinexchange/internal/modules/interaction/service"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/response"
	"anoa.com/coinexchange/pkg/validator"
	"github.com/gin-gonic/gin"
)

type InteractionHandler struct {
	service interactionService.InteractionService
}

func NewInteractionHandler(service interactionService.InteractionService) *InteractionHandler {
	return &InteractionHandler{service: service}
}

func (h *InteractionHandler) OpenRequest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input interactionDto.OpenRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	req, err := h.service.OpenRequest(c.Request.Context(), userID, interactionService.OpenRequestInput{
		PostRef:    input.PostRef,
		ActionKind: input.ActionKind,
		Quantity:   input.Quantity,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, interactionDto.ToRequestResponse(req))
}

func (h *InteractionHandler) OpenCampaign(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input interactionDto.CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	req, err := h.service.OpenRequest(c.Request.Context(), adminID, interactionService.OpenRequestInput{
		PostRef:      input.PostRef,
		ActionKind:   input.ActionKind,
		Quantity:     input.Quantity,
		CostOverride: input.CostPerAction,
		Campaign:     true,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, interactionDto.ToRequestResponse(req))
}

func (h *InteractionHandler) CloseRequest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ResponseError(c, apperror.ErrRequestNotFound)
		return
	}

	req, err := h.service.CloseRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, interactionDto.ToRequestResponse(req))
}

func (h *InteractionHandler) GetRequest(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ResponseError(c, apperror.ErrRequestNotFound)
		return
	}

	req, err := h.service.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, interactionDto.ToRequestResponse(req))
}

func (h *InteractionHandler) ListOpenRequests(c *gin.Context) {
	userID, filter, kind, ok := h.bindFilter(c)
	if !ok {
		return
	}

	requests, err := h.service.FindOpenRequests(c.Request.Context(), userID, kind, filter.Limit, filter.Offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": interactionDto.ToRequestResponses(requests)})
}

func (h *InteractionHandler) SearchRequests(c *gin.Context) {
	userID, filter, kind, ok := h.bindFilter(c)
	if !ok {
		return
	}

	requests, err := h.service.SearchOpenRequests(c.Request.Context(), userID, filter.Query, kind, filter.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": interactionDto.ToRequestResponses(requests)})
}

func (h *InteractionHandler) bindFilter(c *gin.Context) (int64, interactionDto.RequestFilter, *entity.ActionKind, bool) {
	var filter interactionDto.RequestFilter

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return 0, filter, nil, false
	}

	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return 0, filter, nil, false
	}

	var kind *entity.ActionKind
	if filter.ActionKind != "" {
		k, ok := entity.ParseActionKind(filter.ActionKind)
		if !ok {
			response.ResponseError(c, apperror.ErrInvalidActionKind)
			return 0, filter, nil, false
		}
		kind = &k
	}
	return userID, filter, kind, true
}
