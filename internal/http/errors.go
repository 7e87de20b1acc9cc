package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"legaldesk/internal/policy"
	"legaldesk/internal/repository"
	"legaldesk/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, policy.ErrSelfTarget):
		return http.StatusBadRequest
	case errors.Is(err, policy.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, policy.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the {error} body. Internal errors are logged and hidden from the caller.
func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		s.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).WithError(err).Error("request failed")
		c.JSON(status, errorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func badJSON(c *gin.Context) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid json"})
}
