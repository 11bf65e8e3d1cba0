package testgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// GenerateEPUB creates a valid EPUB file at the specified path with the given
// options. The generated EPUB contains mimetype, container.xml, content.opf
// with metadata, one xhtml document per chapter, and optionally a cover image.
func GenerateEPUB(t *testing.T, dir, filename string, opts EPUBOptions) string {
	t.Helper()

	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create EPUB file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	// mimetype must be first and uncompressed
	mimetypeHeader := &zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	}
	w, err := zw.CreateHeader(mimetypeHeader)
	if err != nil {
		t.Fatalf("failed to create mimetype entry: %v", err)
	}
	if _, err := w.Write([]byte("application/epub+zip")); err != nil {
		t.Fatalf("failed to write mimetype: %v", err)
	}

	containerXML := `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`
	if err := writeZipFile(zw, "META-INF/container.xml", []byte(containerXML)); err != nil {
		t.Fatalf("failed to write container.xml: %v", err)
	}

	coverMimeType := opts.CoverMimeType
	if coverMimeType == "" {
		coverMimeType = "image/png"
	}
	var coverFilename string
	if opts.HasCover {
		coverData := generateImage(t, coverMimeType)
		if coverMimeType == "image/jpeg" {
			coverFilename = "cover.jpg"
		} else {
			coverFilename = "cover.png"
		}
		if err := writeZipFile(zw, "OEBPS/"+coverFilename, coverData); err != nil {
			t.Fatalf("failed to write cover image: %v", err)
		}
	}

	chapters := opts.Chapters
	if len(chapters) == 0 {
		chapters = DefaultChapters
	}

	opfContent := generateOPF(opts, chapters, coverFilename, coverMimeType)
	if err := writeZipFile(zw, "OEBPS/content.opf", []byte(opfContent)); err != nil {
		t.Fatalf("failed to write content.opf: %v", err)
	}

	for i, chapter := range chapters {
		name := fmt.Sprintf("OEBPS/chapter%d.xhtml", i+1)
		if err := writeZipFile(zw, name, []byte(generateChapter(chapter))); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	return path
}

func generateOPF(opts EPUBOptions, chapters []ChapterOptions, coverFilename, coverMimeType string) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
`)

	// Title only when provided, to test the no-title placeholder path.
	if opts.Title != "" {
		buf.WriteString(fmt.Sprintf("    <dc:title id=\"title\">%s</dc:title>\n", escapeXML(opts.Title)))
	}

	if opts.Author != "" {
		buf.WriteString(fmt.Sprintf("    <dc:creator id=\"creator\" opf:role=\"aut\">%s</dc:creator>\n", escapeXML(opts.Author)))
	}

	if opts.Rights != "" {
		buf.WriteString(fmt.Sprintf("    <dc:rights>%s</dc:rights>\n", escapeXML(opts.Rights)))
	}

	for _, subject := range opts.Subjects {
		buf.WriteString(fmt.Sprintf("    <dc:subject>%s</dc:subject>\n", escapeXML(subject)))
	}

	buf.WriteString("    <dc:identifier id=\"bookid\">urn:uuid:test-book-id</dc:identifier>\n")
	buf.WriteString("    <dc:language>en</dc:language>\n")

	if coverFilename != "" {
		buf.WriteString("    <meta name=\"cover\" content=\"cover-image\"/>\n")
	}

	buf.WriteString("  </metadata>\n")

	buf.WriteString("  <manifest>\n")
	for i := range chapters {
		buf.WriteString(fmt.Sprintf("    <item id=\"chapter%d\" href=\"chapter%d.xhtml\" media-type=\"application/xhtml+xml\"/>\n", i+1, i+1))
	}
	if coverFilename != "" {
		buf.WriteString(fmt.Sprintf("    <item id=\"cover-image\" href=\"%s\" media-type=\"%s\"/>\n", coverFilename, coverMimeType))
	}
	buf.WriteString("  </manifest>\n")

	buf.WriteString("  <spine>\n")
	for i := range chapters {
		buf.WriteString(fmt.Sprintf("    <itemref idref=\"chapter%d\"/>\n", i+1))
	}
	buf.WriteString("  </spine>\n")

	buf.WriteString("</package>")

	return buf.String()
}

func generateChapter(chapter ChapterOptions) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
`)
	buf.WriteString(fmt.Sprintf("  <title>%s</title>\n", escapeXML(chapter.Title)))
	buf.WriteString("</head>\n<body>\n")
	if chapter.Title != "" {
		buf.WriteString(fmt.Sprintf("  <h1>%s</h1>\n", escapeXML(chapter.Title)))
	}
	for _, paragraph := range chapter.Paragraphs {
		buf.WriteString(fmt.Sprintf("  <p>%s</p>\n", escapeXML(paragraph)))
	}
	buf.WriteString("</body>\n</html>")

	return buf.String()
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func generateImage(t *testing.T, mimeType string) []byte {
	t.Helper()

	// A simple 100x100 solid color image.
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	blue := color.RGBA{0, 100, 200, 255}
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, blue)
		}
	}

	var buf bytes.Buffer
	switch mimeType {
	case "image/jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			t.Fatalf("failed to encode JPEG: %v", err)
		}
	default: // image/png
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("failed to encode PNG: %v", err)
		}
	}

	return buf.Bytes()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&apos;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
