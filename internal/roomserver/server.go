package roomserver

import (
	"net/http"

	"github.com/cory-johannsen/parlor/internal/config"
)

// NewHTTPServer builds the http.Server serving all room routes.
func NewHTTPServer(cfg config.ServerConfig, handlers *Handlers) *http.Server {
	mux := http.NewServeMux()
	handlers.Register(mux)
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
