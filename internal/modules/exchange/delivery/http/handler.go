package http

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"anoa.com/coinexchange/internal/entity"
	exchangeDto "anoa.com/coinexchange/internal/modules/exchange/dto"
	exchangeService "anoa.com/coinexchange/internal/modules/exchange/service"
	ledgerDto "anoa.com/coinexchange/internal/modules/ledger/dto"
	verificationService "anoa.com/coinexchange/internal/modules/verification/service"
	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/dto"
	"anoa.com/coinexchange/pkg/response"
	"anoa.com/coinexchange/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxScreenshotSize = 5 << 20

type ExchangeHandler struct {
	service      exchangeService.ExchangeService
	verification verificationService.VerificationService
}

func NewExchangeHandler(service exchangeService.ExchangeService, verification verificationService.VerificationService) *ExchangeHandler {
	return &ExchangeHandler{service: service, verification: verification}
}

func (h *ExchangeHandler) ClaimCompletion(c *gin.Context) {
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

	var input exchangeDto.ClaimRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&input); err != nil {
			response.BadRequest(c, validator.FormatValidationError(err))
			return
		}
	}

	claim := exchangeService.ClaimInput{
		RequestID:   requestID,
		Slot:        entity.ProfileSlot(input.Slot),
		CommentText: input.CommentText,
	}

	if file, err := c.FormFile("screenshot"); err == nil {
		f, err := openScreenshot(file)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		defer f.Close()
		claim.Screenshot = f
		claim.ScreenshotName = file.Filename
	}

	result, err := h.service.ClaimCompletion(c.Request.Context(), userID, claim)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == exchangeService.OutcomeAwaitingReview {
		status = http.StatusAccepted
	}
	c.JSON(status, exchangeDto.ToClaimResponse(result))
}

func (h *ExchangeHandler) AttachEvidence(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	evidenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrEvidenceNotFound)
		return
	}

	file, err := c.FormFile("screenshot")
	if err != nil {
		response.BadRequest(c, "screenshot is required")
		return
	}

	f, err := openScreenshot(file)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	defer f.Close()

	evidence, err := h.service.AttachEvidence(c.Request.Context(), userID, evidenceID, f, file.Filename)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, exchangeDto.ToEvidenceResponse(evidence))
}

func (h *ExchangeHandler) GetMyCompletions(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	completions, err := h.service.MyCompletions(c.Request.Context(), userID, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": exchangeDto.ToCompletionResponses(completions)})
}

func (h *ExchangeHandler) ListPendingEvidence(c *gin.Context) {
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

	evidence, err := h.verification.ListPending(c.Request.Context(), adminID, query.Limit, query.Offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	total, err := h.verification.CountPending(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(exchangeDto.ToEvidenceResponses(evidence), query, total))
}

func (h *ExchangeHandler) ApproveEvidence(c *gin.Context) {
	h.resolveEvidence(c, true)
}

func (h *ExchangeHandler) RejectEvidence(c *gin.Context) {
	h.resolveEvidence(c, false)
}

func (h *ExchangeHandler) resolveEvidence(c *gin.Context, approve bool) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	evidenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrEvidenceNotFound)
		return
	}

	result, err := h.service.ResolveEvidence(c.Request.Context(), adminID, evidenceID, approve)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, exchangeDto.ToClaimResponse(result))
}

func (h *ExchangeHandler) AdjustBalance(c *gin.Context) {
	adminID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ResponseError(c, apperror.ErrUserNotFound)
		return
	}

	var input ledgerDto.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	entry, err := h.service.AdjustBalance(c.Request.Context(), adminID, userID, input.Delta, input.Note)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, ledgerDto.ToLedgerEntryResponses([]entity.LedgerEntry{*entry})[0])
}

func openScreenshot(file *multipart.FileHeader) (multipart.File, error) {
	if file.Size > maxScreenshotSize {
		return nil, errors.New("screenshot must be 5MB or smaller")
	}
	return file.Open()
}
