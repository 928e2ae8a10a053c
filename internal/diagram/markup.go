// Package diagram handles the draw.io markup that travels between the host
// and the embedded editor: the empty baseline document, extraction of the
// markup embedded in exported renderings, page (de)compression and
// validation of documents before they are loaded.
package diagram

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/compress/flate"
)

// EmptyDiagram is the cleared-canvas baseline: one page holding only the
// root cell and the default layer.
const EmptyDiagram = `<mxfile><diagram name="Page-1" id="page-1"><mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/></root></mxGraphModel></diagram></mxfile>`

// structuralCells is the number of cells every page carries (root + layer).
const structuralCells = 2

const (
	rasterPrefix  = "data:image/png"
	svgDataPrefix = "data:image/svg+xml;base64,"
)

var (
	ErrRasterPayload = errors.New("payload is a raster image")
	ErrNoMarkup      = errors.New("payload carries no diagram markup")
)

// IsRasterPayload reports whether an export payload is a PNG data URL.
func IsRasterPayload(payload string) bool {
	return strings.HasPrefix(strings.TrimSpace(payload), rasterPrefix)
}

// IsRealDiagram reports whether markup contains anything beyond the
// structural cells. Unparseable markup is never real.
func IsRealDiagram(markup string) bool {
	if strings.TrimSpace(markup) == "" {
		return false
	}
	n, err := countCells(markup)
	if err != nil {
		return false
	}
	return n > structuralCells
}

// ExtractMarkup returns the diagram markup carried by an export payload. The
// payload may be an SVG rendering with the markup in its content attribute,
// the same SVG as a base64 data URL, or bare markup. A compressed first page
// is returned inflated.
func ExtractMarkup(payload string) (string, error) {
	p := strings.TrimSpace(payload)
	if IsRasterPayload(p) {
		return "", ErrRasterPayload
	}

	if strings.HasPrefix(p, svgDataPrefix) {
		raw, err := base64.StdEncoding.DecodeString(p[len(svgDataPrefix):])
		if err != nil {
			return "", fmt.Errorf("decode svg data url: %w", err)
		}
		p = strings.TrimSpace(string(raw))
	}

	if !isMarkupRoot(p) {
		content, err := svgContent(p)
		if err != nil {
			return "", err
		}
		p = strings.TrimSpace(content)
	}

	pages, err := parsePages(p)
	if err != nil {
		return "", err
	}
	if len(pages) == 1 && pages[0].compressed {
		return pages[0].model, nil
	}
	return p, nil
}

// WrapContainer wraps a bare graph model in a single-page mxfile container.
func WrapContainer(markup string) string {
	if strings.Contains(markup, "<mxfile") {
		return markup
	}
	return `<mxfile><diagram name="Page-1" id="page-1">` + markup + `</diagram></mxfile>`
}

// EncodeSVG renders a placeholder SVG that embeds markup the way the editor's
// xmlsvg export does. It carries no drawing.
func EncodeSVG(markup string) string {
	var buf bytes.Buffer
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" version="1.1" content="`)
	// EscapeText never fails on a bytes.Buffer.
	_ = xml.EscapeText(&buf, []byte(markup))
	buf.WriteString(`"><g/></svg>`)
	return buf.String()
}

// DecodeDiagram inflates compressed page content (base64, raw deflate,
// URI-encoded). Uncompressed content is returned unchanged.
func DecodeDiagram(content string) (string, error) {
	c := strings.TrimSpace(content)
	if c == "" || strings.HasPrefix(c, "<") {
		return c, nil
	}

	raw, err := base64.StdEncoding.DecodeString(c)
	if err != nil {
		return "", fmt.Errorf("decode page: %w", err)
	}

	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	inflated, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("inflate page: %w", err)
	}

	decoded, err := url.PathUnescape(string(inflated))
	if err != nil {
		return "", fmt.Errorf("unescape page: %w", err)
	}
	return decoded, nil
}

// EncodeDiagram is the inverse of DecodeDiagram.
func EncodeDiagram(model string) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := w.Write([]byte(url.PathEscape(model))); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func isMarkupRoot(s string) bool {
	return strings.HasPrefix(s, "<mxfile") || strings.HasPrefix(s, "<mxGraphModel")
}

// svgContent returns the content attribute of the root svg element.
func svgContent(doc string) (string, error) {
	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = false
	d.Entity = xml.HTMLEntity

	for {
		tok, err := d.Token()
		if err == io.EOF {
			return "", ErrNoMarkup
		}
		if err != nil {
			return "", fmt.Errorf("parse rendering: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return "", ErrNoMarkup
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "content" && strings.TrimSpace(attr.Value) != "" {
				return attr.Value, nil
			}
		}
		return "", ErrNoMarkup
	}
}

type page struct {
	model      string
	compressed bool
}

type mxFile struct {
	XMLName  xml.Name `xml:"mxfile"`
	Diagrams []struct {
		Inner string `xml:",innerxml"`
	} `xml:"diagram"`
}

// parsePages splits markup into its graph models, inflating compressed pages.
func parsePages(markup string) ([]page, error) {
	m := strings.TrimSpace(markup)
	if strings.HasPrefix(m, "<mxGraphModel") {
		return []page{{model: m}}, nil
	}
	if !strings.HasPrefix(m, "<mxfile") {
		return nil, ErrNoMarkup
	}

	var f mxFile
	if err := xml.Unmarshal([]byte(m), &f); err != nil {
		return nil, fmt.Errorf("parse container: %w", err)
	}

	pages := make([]page, 0, len(f.Diagrams))
	for _, d := range f.Diagrams {
		inner := strings.TrimSpace(d.Inner)
		if inner == "" || strings.HasPrefix(inner, "<") {
			pages = append(pages, page{model: inner})
			continue
		}
		decoded, err := DecodeDiagram(inner)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page{model: decoded, compressed: true})
	}
	return pages, nil
}

func countCells(markup string) (int, error) {
	pages, err := parsePages(markup)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, p := range pages {
		d := xml.NewDecoder(strings.NewReader(p.model))
		for {
			tok, err := d.Token()
			if err == io.EOF {
				break
			}
			if err != nil {
				return 0, err
			}
			if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "mxCell" {
				n++
			}
		}
	}
	return n, nil
}
