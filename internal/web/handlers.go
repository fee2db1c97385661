// internal/web/handlers.go
package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"iconsmd/internal/compose"
	"iconsmd/internal/config"
	"iconsmd/internal/render"
)

// GET /icons?i=a,b,c&perline=N&format=svg|webp
func (s *Server) getIcons(c *gin.Context) {
	names := parseNames(c.Query("i"))
	if len(names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter i must name at least one icon"})
		return
	}

	var opts compose.Options
	if raw, ok := c.GetQuery("perline"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || !config.ValidPerRow(n) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("perline must be an integer between %d and %d", config.MinPerRow, config.MaxPerRow),
			})
			return
		}
		opts.MaxPerRow = n
	}
	if raw, ok := c.GetQuery("format"); ok {
		format, err := render.ParseFormat(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts.Format = format
	}

	img, err := s.compositor.Compose(c.Request.Context(), names, opts)
	if err != nil {
		logrus.WithError(err).WithField("icons", len(names)).Error("Failed to compose icons")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render icons"})
		return
	}

	maxAge := int(s.config.Server.HTTPCacheMaxAge.Seconds())
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// parseNames splits a comma separated list, trimming blanks and dropping
// empty entries. Order and repeats are kept.
func parseNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (s *Server) listIcons(c *gin.Context) {
	c.JSON(http.StatusOK, s.index.Names())
}

func (s *Server) refreshIndex(c *gin.Context) {
	count, err := s.index.Refresh(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Manual index refresh failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh icon index"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) healthCheck(c *gin.Context) {
	size := s.index.Len()
	status := "healthy"
	if size == 0 {
		status = "degraded"
	}

	var refreshedAt interface{}
	if t := s.index.RefreshedAt(); !t.IsZero() {
		refreshedAt = t
	}

	entries := 0
	if s.cache != nil {
		entries = s.cache.Len()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             status,
		"index_size":         size,
		"index_refreshed_at": refreshedAt,
		"cache_entries":      entries,
	})
}
