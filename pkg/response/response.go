package response

import (
	"errors"
	"net/http"
	"strconv"

	"anoa.com/coinexchange/pkg/apperror"
	"anoa.com/coinexchange/pkg/logger"
	"anoa.com/coinexchange/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (int64, error) {
	value, exists := c.Get("user_id")
	if !exists {
		return 0, apperror.ErrUnauthorized
	}

	userID, ok := value.(int64)
	if !ok {
		return 0, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ResponseError renders the stable message and kind code for err.
func ResponseError(c *gin.Context, err error) {
	status := apperror.MapErrorToStatus(err)

	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		logger.Log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	var rateErr *ratelimiter.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(rateErr.RetryAfter.Seconds()+0.5)))
	}

	c.JSON(status, gin.H{
		"error": apperror.Message(err),
		"code":  apperror.Code(err),
	})
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": message,
		"code":  "bad_request",
	})
}
