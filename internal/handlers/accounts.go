package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gangway/internal/accounts"
	"gangway/pkg/logging"
	"gangway/pkg/models"
)

// BanAccount bans an account and tears down its sessions immediately. Any
// token issued before the ban is dead on its next request.
func BanAccount(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if err := repo.SetBanned(ctx, id, true); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Account not found."})
			return
		}
		logger.WithError(err).Error("Failed to ban account")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to ban account."})
		return
	}

	if err := registry.DeactivateAll(ctx, id); err != nil {
		logger.WithFields(logging.Fields{"account_id": id, "error": err.Error()}).Error("Session teardown failed after ban")
	}
	if err := repo.StampLoggedOut(ctx, id); err != nil {
		logger.WithFields(logging.Fields{"account_id": id, "error": err.Error()}).Error("Logout stamp failed after ban")
	}

	logger.WithFields(logging.Fields{"account_id": id}).Warn("Account banned")
	c.JSON(http.StatusOK, gin.H{"message": "Account banned."})
}

// UnbanAccount clears the ban marker. The account still needs a fresh login.
func UnbanAccount(c *gin.Context) {
	id := c.Param("id")

	if err := repo.SetBanned(c.Request.Context(), id, false); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Account not found."})
			return
		}
		logger.WithError(err).Error("Failed to unban account")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to unban account."})
		return
	}

	logger.WithFields(logging.Fields{"account_id": id}).Info("Account unbanned")
	c.JSON(http.StatusOK, gin.H{"message": "Account unbanned."})
}
