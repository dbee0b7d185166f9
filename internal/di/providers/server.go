package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/readquestapp/readquest-server/internal/api"
	"github.com/readquestapp/readquest-server/internal/config"
	"github.com/readquestapp/readquest-server/internal/logger"
	"github.com/readquestapp/readquest-server/internal/ratelimit"
	"github.com/readquestapp/readquest-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	userService := do.MustInvoke[*service.UserService](i)
	bookService := do.MustInvoke[*service.BookService](i)
	progressService := do.MustInvoke[*service.ProgressService](i)
	gamificationService := do.MustInvoke[*service.GamificationService](i)

	handler := api.NewServer(storeHandle.Store, userService, bookService, progressService, gamificationService, log.Logger)

	limiter := ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	limited := api.RateLimitMiddleware(limiter, log.Logger)(handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      limited,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
