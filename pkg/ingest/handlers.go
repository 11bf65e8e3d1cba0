package ingest

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bookabooks/booka/pkg/auth"
	"github.com/bookabooks/booka/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	ingester *Ingester
}

func (h *handler) upload(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, ok := auth.AccountIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Not authorized")
	}

	fileHeader, err := c.FormFile("book")
	if err != nil {
		return errcodes.ValidationError("File is not attached")
	}

	publicDomain, _ := strconv.ParseBool(c.FormValue("publicDomain"))

	// Spool the upload to disk; the pipeline hashes and parses from a path.
	path, cleanup, err := spoolUpload(fileHeader)
	if err != nil {
		return errors.WithStack(err)
	}
	defer cleanup()

	result, err := h.ingester.Ingest(ctx, IngestOptions{
		Path:         path,
		PublicDomain: publicDomain,
		AccountID:    accountID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Success *Result `json:"success"`
	}{result}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func spoolUpload(fileHeader *multipart.FileHeader) (string, func(), error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	defer src.Close()

	dir, err := os.MkdirTemp("", "booka-upload-")
	if err != nil {
		return "", nil, errors.WithStack(err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(fileHeader.Filename))
	dst, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, errors.WithStack(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		cleanup()
		return "", nil, errors.WithStack(err)
	}

	return path, cleanup, nil
}
