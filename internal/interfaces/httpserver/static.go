package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/janhq/chat-api/internal/interfaces/httpserver/responses"
)

// spaHandler serves files from the built client and falls back to index.html so client-side routes
// resolve. Paths under /api never fall back.
func spaHandler(staticDir string) gin.HandlerFunc {
	index := filepath.Join(staticDir, "index.html")

	return func(c *gin.Context) {
		urlPath := c.Request.URL.Path
		if urlPath == "/api" || strings.HasPrefix(urlPath, "/api/") {
			responses.NotFound(c)
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			responses.NotFound(c)
			return
		}

		if file := filepath.Join(staticDir, filepath.FromSlash(path.Clean("/"+urlPath))); isFile(file) {
			c.File(file)
			return
		}
		if !isFile(index) {
			responses.NotFound(c)
			return
		}
		c.File(index)
	}
}

func isFile(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}
