package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gangway/pkg/models"
)

// ListSites returns the tenant sites. Admin-only; tenants are provisioned out
// of band and this is the operator's view of them.
func ListSites(c *gin.Context) {
	rows, err := db.QueryContext(c.Request.Context(), `
		SELECT id, name, slug, description, domain, is_active, created_at, updated_at
		FROM sites ORDER BY name`)
	if err != nil {
		logger.WithError(err).Error("Failed to list sites")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list sites."})
		return
	}
	defer rows.Close()

	sites := make([]models.Site, 0)
	for rows.Next() {
		var s models.Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &s.Domain,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			logger.WithError(err).Error("Failed to scan site row")
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list sites."})
			return
		}
		sites = append(sites, s)
	}
	if err := rows.Err(); err != nil {
		logger.WithError(err).Error("Failed to list sites")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list sites."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sites": sites})
}
