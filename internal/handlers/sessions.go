package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gangway/pkg/auth"
	"gangway/pkg/models"
)

// ListSessions returns the caller's device sessions, most recent first.
func ListSessions(c *gin.Context) {
	claims, ok := auth.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required.", Reason: "unauthenticated"})
		return
	}

	records, err := registry.ListForAccount(c.Request.Context(), claims.UserID)
	if err != nil {
		logger.WithError(err).Error("Failed to list sessions")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list sessions."})
		return
	}

	resp := models.SessionListResponse{Sessions: make([]models.SessionInfo, 0, len(records))}
	for i := range records {
		rec := &records[i]
		resp.Sessions = append(resp.Sessions, models.SessionInfo{
			ID:           rec.ID,
			IPAddress:    rec.IPAddress,
			DeviceType:   rec.DeviceType(),
			Browser:      rec.Browser(),
			IsActive:     rec.IsActive,
			LastActivity: rec.LastActivity.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, resp)
}
