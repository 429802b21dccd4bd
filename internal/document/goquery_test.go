package document

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Sample Page</title>
  <link rel="stylesheet preload" href="a.css">
  <link rel="canonical" href="https://example.com/">
  <meta name="description" content="">
</head>
<body>
  <h1>Heading</h1>
  <img src="a.png" alt="">
  <img src="b.png">
  <a href="#main">Skip</a>
  <script>window.location = "/x";</script>
</body>
</html>`

func mustParse(t *testing.T, html string) *HTMLDocument {
	t.Helper()
	doc, err := Parse(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func TestFindAll(t *testing.T) {
	doc := mustParse(t, samplePage)

	if got := len(doc.FindAll("img")); got != 2 {
		t.Fatalf("expected 2 images, got %d", got)
	}
	if got := len(doc.FindAll("IMG")); got != 2 {
		t.Fatalf("tag lookup should be case-insensitive, got %d", got)
	}
	if got := len(doc.FindAll("iframe")); got != 0 {
		t.Fatalf("expected no iframes, got %d", got)
	}
	if got := len(doc.FindAll("")); got == 0 {
		t.Fatal("empty tag should match every element")
	}
}

func TestAttrDistinguishesAbsentFromEmpty(t *testing.T) {
	doc := mustParse(t, samplePage)
	imgs := doc.FindAll("img")

	alt, ok := imgs[0].Attr("alt")
	if !ok || alt != "" {
		t.Fatalf("expected present empty alt, got %q present=%v", alt, ok)
	}
	if _, ok := imgs[1].Attr("alt"); ok {
		t.Fatal("expected alt to be absent on second image")
	}
	if imgs[0].Tag() != "img" {
		t.Fatalf("unexpected tag %q", imgs[0].Tag())
	}
}

func TestFindByAttrMatchesTokens(t *testing.T) {
	doc := mustParse(t, samplePage)

	if got := len(doc.FindByAttr("link", "rel", "stylesheet")); got != 1 {
		t.Fatalf("expected 1 stylesheet link, got %d", got)
	}
	if got := len(doc.FindByAttr("link", "rel", "Canonical")); got != 1 {
		t.Fatalf("expected 1 canonical link, got %d", got)
	}
	if got := len(doc.FindByAttr("a", "href", "#content")); got != 0 {
		t.Fatalf("expected no #content anchor, got %d", got)
	}
	if got := len(doc.FindWithAttr("meta", "content")); got != 1 {
		t.Fatalf("expected 1 meta with content, got %d", got)
	}
}

func TestFirstAndText(t *testing.T) {
	doc := mustParse(t, samplePage)

	title, ok := doc.First("title")
	if !ok || title.Text() != "Sample Page" {
		t.Fatalf("unexpected title %v %v", title, ok)
	}
	if _, ok := doc.First("h2"); ok {
		t.Fatal("expected no h2")
	}

	text := doc.Text()
	for _, want := range []string{"Sample Page", "Heading", "Skip", "window.location"} {
		if !strings.Contains(text, want) {
			t.Errorf("document text missing %q", want)
		}
	}
}
