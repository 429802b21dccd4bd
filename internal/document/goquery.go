package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLDocument is the goquery-backed View.
type HTMLDocument struct {
	doc *goquery.Document
}

var _ View = (*HTMLDocument)(nil)

// Parse builds a View from an HTML stream.
func Parse(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &HTMLDocument{doc: doc}, nil
}

// ParseBytes is Parse over an in-memory body.
func ParseBytes(body []byte) (*HTMLDocument, error) {
	return Parse(bytes.NewReader(body))
}

func (d *HTMLDocument) FindAll(tag string) []Element {
	return wrap(d.doc.Find(selectorFor(tag)))
}

func (d *HTMLDocument) FindWithAttr(tag, attr string) []Element {
	sel := d.doc.Find(selectorFor(tag)).FilterFunction(func(_ int, s *goquery.Selection) bool {
		_, ok := s.Attr(attr)
		return ok
	})
	return wrap(sel)
}

func (d *HTMLDocument) FindByAttr(tag, attr, value string) []Element {
	want := strings.ToLower(strings.TrimSpace(value))
	sel := d.doc.Find(selectorFor(tag)).FilterFunction(func(_ int, s *goquery.Selection) bool {
		got, ok := s.Attr(attr)
		if !ok {
			return false
		}
		for _, token := range strings.Fields(strings.ToLower(got)) {
			if token == want {
				return true
			}
		}
		return false
	})
	return wrap(sel)
}

func (d *HTMLDocument) First(tag string) (Element, bool) {
	sel := d.doc.Find(selectorFor(tag)).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return node{sel: sel}, true
}

func (d *HTMLDocument) Text() string {
	return d.doc.Text()
}

// selectorFor turns a bare tag name into a selector; "" matches everything.
func selectorFor(tag string) string {
	tag = strings.TrimSpace(strings.ToLower(tag))
	if tag == "" {
		return "*"
	}
	return tag
}

func wrap(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, node{sel: s})
	})
	return out
}

type node struct {
	sel *goquery.Selection
}

func (n node) Tag() string {
	return goquery.NodeName(n.sel)
}

func (n node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n node) Text() string {
	return n.sel.Text()
}
