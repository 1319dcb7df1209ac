package http

import (
	"net/http"

	leaderboardDto "anoa.com/coinexchange/internal/modules/leaderboard/dto"
	leaderboardService "anoa.com/coinexchange/internal/modules/leaderboard/service"
	"anoa.com/coinexchange/pkg/response"
	"anoa.com/coinexchange/pkg/validator"
	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	service leaderboardService.LeaderboardService
}

func NewLeaderboardHandler(service leaderboardService.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// GetLeaderboard defaults to the current week when no period is given.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	var query leaderboardDto.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}
	if query.Period == "" {
		query.Period = h.service.CurrentPeriods()[0]
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), query.Period, query.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	closed, err := h.service.IsClosed(c.Request.Context(), query.Period)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboardDto.LeaderboardResponse{
		Period:  query.Period,
		Closed:  closed,
		Entries: entries,
	})
}

func (h *LeaderboardHandler) GetCurrentPeriods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"periods": h.service.CurrentPeriods()})
}

func (h *LeaderboardHandler) ClosePeriod(c *gin.Context) {
	var input leaderboardDto.ClosePeriodRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, validator.FormatValidationError(err))
		return
	}

	entries, err := h.service.ClosePeriod(c.Request.Context(), input.Period)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboardDto.LeaderboardResponse{
		Period:  input.Period,
		Closed:  true,
		Entries: entries,
	})
}
