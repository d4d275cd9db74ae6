package api

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/yegors/maintlog/pkg/logger"
)

//go:embed web
var webFS embed.FS

// NewStaticFileHandler serves the UI from dir, or the embedded page when dir is empty
func NewStaticFileHandler(dir string, log *logger.Logger) http.Handler {
	if dir != "" {
		log.Info("Serving UI from directory", logger.String("dir", dir))
		return http.FileServer(http.Dir(dir))
	}

	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		// the embed directive guarantees the directory exists
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
