package ingest

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/bookabooks/booka/pkg/assets"
	"github.com/bookabooks/booka/pkg/config"
	"github.com/bookabooks/booka/pkg/epub"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/image/draw"
)

const (
	bookaExt       = ".booka"
	largeCoverKey  = "@cover@large@"
	smallCoverKey  = "@cover@small@"
	smallCoverSize = 180
)

// Diagnostic records one tolerated sub-step failure during the asset
// fan-out. Diagnostics are aggregated and returned alongside the outcome,
// never thrown away.
type Diagnostic struct {
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// Outcome is the aggregated result of uploading a book's assets. Success
// means the required JSON asset is retrievable; cover and original-file
// fields are only set when their uploads succeeded.
type Outcome struct {
	Success       bool
	JSONKey       string
	OriginalKey   *string
	LargeCoverURL *string
	SmallCoverURL *string
	Diagnostics   []Diagnostic
}

// AssetUploader fans a parsed book out into its stored assets: the full and
// small cover images, the JSON representation, and the original file. The
// JSON upload is the only required step; the others degrade to diagnostics.
type AssetUploader struct {
	store          assets.Store
	jsonBucket     string
	originalBucket string
	imagesBucket   string
}

func NewAssetUploader(cfg *config.Config, store assets.Store) *AssetUploader {
	return &AssetUploader{
		store:          store,
		jsonBucket:     cfg.JSONBucket,
		originalBucket: cfg.OriginalBucket,
		imagesBucket:   cfg.ImagesBucket,
	}
}

// UploadAssets uploads everything derived from one book under the given
// alias. The cover pair and the json/original pair run concurrently; within
// each pair order is fixed (the original file is only worth storing once
// the JSON made it).
func (u *AssetUploader) UploadAssets(ctx context.Context, book *epub.Book, alias, originalPath string) *Outcome {
	outcome := &Outcome{Diagnostics: []Diagnostic{}}

	var coverLarge, coverSmall *assets.UploadResult
	var coverDiags []Diagnostic

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		coverLarge, coverSmall, coverDiags = u.uploadCovers(ctx, book, alias)
	}()

	jsonResult, jsonDiag := u.uploadJSON(ctx, book, alias)
	if jsonResult != nil {
		outcome.JSONKey = jsonResult.Key
		if originalResult, diag := u.uploadOriginal(ctx, alias, originalPath); diag != nil {
			outcome.Diagnostics = append(outcome.Diagnostics, *diag)
		} else {
			outcome.OriginalKey = &originalResult.Key
		}
	}

	wg.Wait()

	outcome.Diagnostics = append(outcome.Diagnostics, coverDiags...)
	if coverLarge != nil {
		outcome.LargeCoverURL = &coverLarge.URL
	}
	if coverSmall != nil {
		outcome.SmallCoverURL = &coverSmall.URL
	}

	if jsonDiag != nil {
		outcome.Diagnostics = append(outcome.Diagnostics, *jsonDiag)
		return outcome
	}

	outcome.Success = true
	return outcome
}

func (u *AssetUploader) uploadJSON(ctx context.Context, book *epub.Book, alias string) (*assets.UploadResult, *Diagnostic) {
	body, err := json.Marshal(book)
	if err != nil {
		return nil, &Diagnostic{Message: "failed to encode book json: " + alias, Cause: err.Error()}
	}

	result, err := u.store.Upload(ctx, u.jsonBucket, alias+bookaExt, body, "application/json")
	if err != nil {
		return nil, &Diagnostic{Message: "failed to upload book json: " + alias, Cause: err.Error()}
	}
	return result, nil
}

func (u *AssetUploader) uploadOriginal(ctx context.Context, alias, path string) (*assets.UploadResult, *Diagnostic) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, &Diagnostic{Message: "failed to read original file: " + alias, Cause: err.Error()}
	}

	result, err := u.store.Upload(ctx, u.originalBucket, alias, body, "application/epub+zip")
	if err != nil {
		return nil, &Diagnostic{Message: "failed to upload original file: " + alias, Cause: err.Error()}
	}
	return result, nil
}

func (u *AssetUploader) uploadCovers(ctx context.Context, book *epub.Book, alias string) (large, small *assets.UploadResult, diags []Diagnostic) {
	cover := book.Meta.Cover
	if len(cover) == 0 {
		return nil, nil, nil
	}

	contentType := book.Meta.CoverMimeType
	if contentType == "" {
		contentType = mimetype.Detect(cover).String()
	}

	large, err := u.store.Upload(ctx, u.imagesBucket, largeCoverKey+alias, cover, contentType)
	if err != nil {
		large = nil
		diags = append(diags, Diagnostic{Message: "failed to upload large cover: " + alias, Cause: err.Error()})
	}

	thumbnail, err := resizeCover(cover)
	if err != nil {
		diags = append(diags, Diagnostic{Message: "failed to resize cover: " + alias, Cause: err.Error()})
		return large, nil, diags
	}

	small, err = u.store.Upload(ctx, u.imagesBucket, smallCoverKey+alias, thumbnail, "image/jpeg")
	if err != nil {
		small = nil
		diags = append(diags, Diagnostic{Message: "failed to upload small cover: " + alias, Cause: err.Error()})
	}

	return large, small, diags
}

// resizeCover scales the cover down to a fixed-height thumbnail, keeping
// the aspect ratio.
func resizeCover(cover []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(cover))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode cover image")
	}

	bounds := src.Bounds()
	if bounds.Dy() == 0 {
		return nil, errors.New("cover image has no height")
	}

	height := smallCoverSize
	width := bounds.Dx() * height / bounds.Dy()
	if width < 1 {
		width = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, errors.Wrap(err, "failed to encode cover thumbnail")
	}
	return buf.Bytes(), nil
}
