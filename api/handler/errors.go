package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/models"
)

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.CrawlResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: message,
		},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNetwork, models.ErrCodeHTTPStatus:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput, models.ErrCodeInvalidMode:
		return http.StatusBadRequest // 400
	case models.ErrCodePolicyDenied:
		return http.StatusForbidden // 403
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

// detailOf converts any error to an ErrorDetail, or nil for a nil error.
func detailOf(err error) *models.ErrorDetail {
	if err == nil {
		return nil
	}
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se.ToDetail()
	}
	return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
