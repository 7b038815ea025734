package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// registerStatic serves the built frontend when StaticDir exists. Unknown
// paths outside the API fall back to index.html for client-side routing.
func (h *Handler) registerStatic(r *gin.Engine) {
	dir := h.opts.StaticDir
	if dir == "" || !isDir(dir) {
		h.logger.Info("Running in API-only mode", zap.String("static_dir", dir))
		r.NoRoute(h.notFound)
		return
	}

	h.logger.Info("Serving static files", zap.String("static_dir", dir))

	if assets := filepath.Join(dir, "assets"); isDir(assets) {
		r.Static("/assets", assets)
	}

	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			h.notFound(c)
			return
		}
		if p := c.Request.URL.Path; p == h.opts.APIPrefix || strings.HasPrefix(p, h.opts.APIPrefix+"/") {
			h.notFound(c)
			return
		}

		// path.Clean on a rooted path cannot climb above dir
		target := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
		if isFile(target) {
			c.File(target)
			return
		}

		index := filepath.Join(dir, "index.html")
		if isFile(index) {
			c.File(index)
			return
		}
		h.notFound(c)
	})
}

func (h *Handler) notFound(c *gin.Context) {
	fail(c, http.StatusNotFound, "not found")
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
