// internal/web/favicon.go
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// A 2×2 grid of the same rounded tiles the service renders.
const faviconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 32" width="32" height="32">
  <rect x="1" y="1" width="14" height="14" rx="3" fill="#242938"/>
  <rect x="17" y="1" width="14" height="14" rx="3" fill="#242938"/>
  <rect x="1" y="17" width="14" height="14" rx="3" fill="#242938"/>
  <rect x="17" y="17" width="14" height="14" rx="3" fill="#242938"/>
  <circle cx="8" cy="8" r="3.5" fill="#61dafb"/>
  <path d="M21 11.5 24 4.5 27 11.5Z" fill="#f7df1e"/>
  <rect x="4.5" y="20.5" width="7" height="7" rx="1" fill="#3178c6"/>
  <path d="M20.5 24h7M24 20.5v7" stroke="#e34f26" stroke-width="2" stroke-linecap="round"/>
</svg>`

func (s *Server) serveFavicon(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=31536000")
	c.Data(http.StatusOK, "image/svg+xml", []byte(faviconSVG))
}
