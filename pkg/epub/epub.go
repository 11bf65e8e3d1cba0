package epub

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bookabooks/booka/pkg/htmlutil"
	"github.com/pkg/errors"
)

// Package is the OPF package document, trimmed to the fields the library
// needs.
type Package struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Title []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
		} `xml:"title"`
		Creator []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
			Role string `xml:"role,attr"`
		} `xml:"creator"`
		Rights  string   `xml:"rights"`
		Subject []string `xml:"subject"`
		Meta    []struct {
			Text     string `xml:",chardata"`
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Refines  string `xml:"refines,attr"`
			Property string `xml:"property,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Item []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemref []struct {
			Idref string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// Parse reads an EPUB file and produces the parsed Book: metadata, tags,
// embedded cover bytes, and the spine documents' text grouped into chapters.
func Parse(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	stats, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	zipReader, err := zip.NewReader(f, stats.Size())
	if err != nil {
		return nil, errors.WithStack(err)
	}

	files := map[string]*zip.File{}
	var opfFile *zip.File
	for _, file := range zipReader.File {
		files[file.Name] = file
		if opfFile == nil && filepath.Ext(file.Name) == ".opf" {
			opfFile = file
		}
	}
	if opfFile == nil {
		return nil, errors.New("no opf file found")
	}

	pkg, err := parsePackage(opfFile)
	if err != nil {
		return nil, err
	}

	// All manifest hrefs are relative to the OPF location.
	basePath := filepath.Dir(opfFile.Name)
	if basePath == "." {
		basePath = ""
	} else {
		basePath += "/"
	}

	book := &Book{
		Meta: Meta{
			Title:   mainTitle(pkg),
			Author:  mainAuthor(pkg),
			License: licenseFromRights(pkg.Metadata.Rights),
		},
		Tags: tags(pkg),
	}

	manifest := map[string]int{}
	for i, item := range pkg.Manifest.Item {
		manifest[item.ID] = i
	}

	// Embedded cover: either an EPUB2 <meta name="cover"> reference or an
	// EPUB3 cover-image manifest property.
	coverID := ""
	for _, m := range pkg.Metadata.Meta {
		if m.Name == "cover" && m.Content != "" {
			coverID = m.Content
		}
	}
	for _, item := range pkg.Manifest.Item {
		isCover := item.ID == coverID || strings.Contains(item.Properties, "cover-image")
		if !isCover {
			continue
		}
		if file, ok := files[basePath+item.Href]; ok {
			data, err := readZipFile(file)
			if err != nil {
				return nil, err
			}
			book.Meta.Cover = data
			book.Meta.CoverMimeType = item.MediaType
		}
		break
	}

	// Walk the spine in order, one chapter per document.
	for _, itemref := range pkg.Spine.Itemref {
		idx, ok := manifest[itemref.Idref]
		if !ok {
			continue
		}
		item := pkg.Manifest.Item[idx]
		file, ok := files[basePath+item.Href]
		if !ok {
			continue
		}
		data, err := readZipFile(file)
		if err != nil {
			return nil, err
		}
		document := string(data)
		paragraphs, err := htmlutil.ExtractParagraphs(document)
		if err != nil {
			return nil, err
		}
		book.Chapters = append(book.Chapters, Chapter{
			Title:      htmlutil.DocumentTitle(document),
			Paragraphs: paragraphs,
		})
	}

	if len(book.Chapters) == 0 {
		return nil, errors.New("epub has no readable spine documents")
	}

	return book, nil
}

func parsePackage(file *zip.File) (*Package, error) {
	data, err := readZipFile(file)
	if err != nil {
		return nil, err
	}
	pkg := &Package{}
	if err := xml.Unmarshal(data, pkg); err != nil {
		return nil, errors.WithStack(err)
	}
	return pkg, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	r, err := file.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

func mainTitle(pkg *Package) string {
	if len(pkg.Metadata.Title) > 0 {
		return strings.TrimSpace(pkg.Metadata.Title[0].Text)
	}
	return ""
}

func mainAuthor(pkg *Package) string {
	for _, creator := range pkg.Metadata.Creator {
		if creator.Role == "aut" || len(pkg.Metadata.Creator) == 1 {
			return strings.TrimSpace(creator.Text)
		}
	}
	if len(pkg.Metadata.Creator) > 0 {
		return strings.TrimSpace(pkg.Metadata.Creator[0].Text)
	}
	return ""
}

func licenseFromRights(rights string) string {
	if strings.Contains(strings.ToLower(rights), "public domain") {
		return LicensePublicDomain
	}
	return LicenseUnknown
}

func tags(pkg *Package) []string {
	result := []string{}
	for _, subject := range pkg.Metadata.Subject {
		subject = strings.TrimSpace(subject)
		if subject != "" {
			result = append(result, subject)
		}
	}
	return result
}
