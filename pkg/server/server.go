package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bookabooks/booka/pkg/assets"
	"github.com/bookabooks/booka/pkg/auth"
	"github.com/bookabooks/booka/pkg/binder"
	"github.com/bookabooks/booka/pkg/bookcache"
	"github.com/bookabooks/booka/pkg/books"
	"github.com/bookabooks/booka/pkg/config"
	"github.com/bookabooks/booka/pkg/errcodes"
	"github.com/bookabooks/booka/pkg/ingest"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	store, err := assets.New(cfg, db)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cache, err := bookcache.New(store, cfg.BookCacheSize)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	authMiddleware := auth.NewMiddleware(auth.NewService(cfg))

	// The whole API lives on one group: read endpoints are public, the
	// upload endpoint requires an account.
	g := e.Group("")
	books.RegisterRoutesWithGroup(g, db, cache)
	ingest.RegisterRoutesWithGroup(g, db, cfg, store, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
