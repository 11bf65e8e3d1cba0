package books

import (
	"net/http"

	"github.com/bookabooks/booka/pkg/bookcache"
	"github.com/bookabooks/booka/pkg/epub"
	"github.com/bookabooks/booka/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	bookService *Service
	cache       *bookcache.Cache
}

// envelope is the response wrapper: either success or fail, never both.
// Failures normally flow through the error handler; this type only builds
// the success side.
type envelope struct {
	Success interface{} `json:"success"`
}

func ok(c echo.Context, payload interface{}) error {
	return errors.WithStack(c.JSON(http.StatusOK, envelope{Success: payload}))
}

// resolveBook accepts either an alias or a record ID, aliases being what
// clients normally hold.
func (h *handler) resolveBook(c echo.Context, id string) (*Book, error) {
	ctx := c.Request().Context()

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{Alias: &id})
	if err == nil {
		return book, nil
	}

	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return book, nil
}

func (h *handler) bookContent(c echo.Context, book *Book) (*epub.Book, error) {
	content, err := h.cache.Get(c.Request().Context(), book.JSONBucket, book.JSONAssetID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load content for book: %s", book.Alias)
	}
	return content, nil
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListBooksOptions{
		Limit:  params.Limit,
		Offset: params.Page * params.Limit,
	}
	if params.Query != "" {
		opts.Query = &params.Query
	}

	list, err := h.bookService.ListBooks(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Values []*Card `json:"values"`
		Next   int     `json:"next"`
	}{cards(list), params.Page + 1}

	return ok(c, resp)
}

func (h *handler) full(c echo.Context) error {
	params := BookQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.resolveBook(c, params.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	content, err := h.bookContent(c, book)
	if err != nil {
		return errors.WithStack(err)
	}

	return ok(c, content)
}

func (h *handler) fragment(c echo.Context) error {
	params := FragmentQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.resolveBook(c, params.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	content, err := h.bookContent(c, book)
	if err != nil {
		return errors.WithStack(err)
	}

	if params.Path >= len(content.Chapters) {
		return errcodes.NotFound("Chapter")
	}

	resp := struct {
		Chapter epub.Chapter `json:"chapter"`
		Path    int          `json:"path"`
		Next    *int         `json:"next,omitempty"`
	}{Chapter: content.Chapters[params.Path], Path: params.Path}
	if next := params.Path + 1; next < len(content.Chapters) {
		resp.Next = &next
	}

	return ok(c, resp)
}

func (h *handler) toc(c echo.Context) error {
	params := BookQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.resolveBook(c, params.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	content, err := h.bookContent(c, book)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Title  string          `json:"title"`
		TOC    []epub.TOCEntry `json:"toc"`
		Length int             `json:"length"`
	}{book.Card().Title, content.TOC(), book.TextLength}

	return ok(c, resp)
}

func (h *handler) card(c echo.Context) error {
	params := BookQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.resolveBook(c, params.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return ok(c, book.Card())
}

func (h *handler) cards(c echo.Context) error {
	params := CardsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Missing books come back as nulls so positions line up with the
	// requested IDs.
	result := make([]*Card, len(params.IDs))
	for i, id := range params.IDs {
		book, err := h.resolveBook(c, id)
		if err != nil {
			continue
		}
		result[i] = book.Card()
	}

	return ok(c, result)
}

func (h *handler) popular(c echo.Context) error {
	ctx := c.Request().Context()

	params := PopularBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	list, err := h.bookService.PopularBooks(ctx, params.Limit)
	if err != nil {
		return errors.WithStack(err)
	}

	return ok(c, cards(list))
}

func cards(list []*Book) []*Card {
	result := make([]*Card, len(list))
	for i, book := range list {
		result[i] = book.Card()
	}
	return result
}
