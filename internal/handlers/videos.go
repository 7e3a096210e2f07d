package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gangway/pkg/ctxkeys"
	"gangway/pkg/models"
)

const videoColumns = `id, tenant_id, title, description, category_id, is_published, created_at, updated_at`

// ListVideos returns published videos under the caller's tenant context. A
// central-scope caller, one with no tenant binding, sees every tenant's
// catalog; the filter comes from the request context, never from a query
// parameter.
func ListVideos(c *gin.Context) {
	ctx := c.Request.Context()

	query := `SELECT ` + videoColumns + ` FROM videos WHERE is_published = TRUE`
	args := []interface{}{}
	if tenantID := ctxkeys.GetTenantID(ctx); tenantID != "" {
		query += ` AND tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.WithError(err).Error("Failed to list videos")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list videos."})
		return
	}
	defer rows.Close()

	resp := models.VideoListResponse{Videos: make([]models.Video, 0)}
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.TenantID, &v.Title, &v.Description, &v.CategoryID,
			&v.IsPublished, &v.CreatedAt, &v.UpdatedAt); err != nil {
			logger.WithError(err).Error("Failed to scan video row")
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list videos."})
			return
		}
		resp.Videos = append(resp.Videos, v)
	}
	if err := rows.Err(); err != nil {
		logger.WithError(err).Error("Failed to list videos")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list videos."})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetVideo returns one video. A tenant-scoped caller cannot see another
// tenant's video even with its id; it reads as not found.
func GetVideo(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1 AND is_published = TRUE`
	args := []interface{}{id}
	if tenantID := ctxkeys.GetTenantID(ctx); tenantID != "" {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	var v models.Video
	err := db.QueryRowContext(ctx, query, args...).Scan(&v.ID, &v.TenantID, &v.Title, &v.Description,
		&v.CategoryID, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Video not found."})
			return
		}
		logger.WithError(err).Error("Failed to load video")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load video."})
		return
	}
	c.JSON(http.StatusOK, v)
}
