package http

import (
	"net/http"
	"strconv"

	purchaseDto "anoa.com/coinexchange/internal/modules/purchase/dto"
	purchaseService "anoa.com/coinexchange/internal/modules/purchase/service"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/dto"
	"anoa.com/coinexchange/pkg/response"
	"anoa.com/coinexchange/pkg/validator"
	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	service purchaseService.PurchaseService
}

func NewPurchaseHandler(service purchaseService.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{service: service}
}

func (h *PurchaseHandler) GetPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": purchaseDto.ToPackageResponses(h.service.Packages())})
}

func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input purchaseDto.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	purchase, err := h.service.Create(c.Request.Context(), userID, purchaseService.CreatePurchaseInput{
		Coins: input.Coins,
		Name:  input.Name,
		Phone: input.Phone,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, purchaseDto.ToPurchaseResponse(purchase))
}

func (h *PurchaseHandler) GetMyPurchases(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	purchases, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": purchaseDto.ToPurchaseResponses(purchases)})
}

func (h *PurchaseHandler) ListPending(c *gin.Context) {
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

	purchases, total, err := h.service.ListPending(c.Request.Context(), adminID, query.Limit, query.Offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(purchaseDto.ToPurchaseResponses(purchases), query, total))
}

func (h *PurchaseHandler) FulfillPurchase(c *gin.Context) {
	h.resolve(c, true)
}

func (h *PurchaseHandler) RejectPurchase(c *gin.Context) {
	h.resolve(c, false)
}

func (h *PurchaseHandler) resolve(c *gin.Context, fulfill bool) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ResponseError(c, apperror.ErrPurchaseNotFound)
		return
	}

	resolve := h.service.Reject
	if fulfill {
		resolve = h.service.Fulfill
	}

	purchase, err := resolve(c.Request.Context(), adminID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, purchaseDto.ToPurchaseResponse(purchase))
}
