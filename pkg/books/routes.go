package books

import (
	"github.com/bookabooks/booka/pkg/bookcache"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the read endpoints on a pre-configured
// group. The upload endpoint is registered separately by the ingest package.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cache *bookcache.Cache) {
	h := &handler{
		bookService: NewService(db),
		cache:       cache,
	}

	g.GET("/search", h.search)
	g.GET("/full", h.full)
	g.GET("/fragment", h.fragment)
	g.GET("/toc", h.toc)
	g.GET("/card", h.card)
	g.GET("/popular", h.popular)
	g.POST("/cards", h.cards)
}
