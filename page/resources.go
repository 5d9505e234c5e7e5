package page

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResourceKind classifies a linked document by its extension.
type ResourceKind string

const (
	KindPDF         ResourceKind = "pdf"
	KindDelimited   ResourceKind = "tabular-delimited"
	KindSpreadsheet ResourceKind = "tabular-spreadsheet"
)

// ResourceRef is a linked document worth downloading.
type ResourceRef struct {
	URL  string
	Kind ResourceKind
	// Delimiter is the field separator for KindDelimited (',' or '\t').
	Delimiter rune
}

// KindOf infers the resource kind from the extension of rawURL's path.
// Query strings and fragments are ignored. ok is false for anything that is
// not a PDF, delimited text or spreadsheet.
func KindOf(rawURL string) (kind ResourceKind, delimiter rune, ok bool) {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".pdf":
		return KindPDF, 0, true
	case ".csv":
		return KindDelimited, ',', true
	case ".tsv":
		return KindDelimited, '\t', true
	case ".xls", ".xlsx":
		return KindSpreadsheet, 0, true
	default:
		return "", 0, false
	}
}

// LinkedResources scans every anchor with an href, in document order, and
// returns the ones pointing at supported documents. Duplicates are kept: a
// page linking the same file twice yields two refs, matching anchor order.
func (s *Snapshot) LinkedResources() []ResourceRef {
	doc, err := s.Document()
	if err != nil {
		return nil
	}

	var refs []ResourceRef
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		abs, err := s.Resolve(href)
		if err != nil {
			return
		}
		kind, delim, ok := KindOf(abs)
		if !ok {
			return
		}
		refs = append(refs, ResourceRef{URL: abs, Kind: kind, Delimiter: delim})
	})
	return refs
}
