package ingest

import (
	"github.com/bookabooks/booka/pkg/assets"
	"github.com/bookabooks/booka/pkg/auth"
	"github.com/bookabooks/booka/pkg/books"
	"github.com/bookabooks/booka/pkg/config"
	"github.com/bookabooks/booka/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the upload endpoint on a pre-configured
// group. Uploads require an authenticated account.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config, store assets.Store, authMiddleware *auth.Middleware) {
	ingester := NewIngester(
		cfg,
		books.NewService(db),
		uploads.NewService(db),
		NewAssetUploader(cfg, store),
	)
	h := &handler{ingester: ingester}

	g.POST("/upload", h.upload, authMiddleware.Authenticate)
}
