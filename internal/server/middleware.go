package server

import (
	"log/slog"

	"github.com/alkime/jackmixer/internal/config"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// apiCSP allows nothing: the server only returns JSON.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// setupSecurityMiddleware configures and applies security middleware to the router
func setupSecurityMiddleware(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	// HSTS only outside development
	stsSeconds := int64(0)
	if !cfg.IsDevelopment() {
		stsSeconds = int64(cfg.HSTSMaxAge)
	}

	router.Use(secure.New(secure.Config{
		STSSeconds:            stsSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: apiCSP,
		IsDevelopment:         cfg.IsDevelopment(),
	}))

	logger.Debug("Configured security middleware", "hsts_enabled", stsSeconds > 0)
}
