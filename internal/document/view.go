// Package document exposes a parsed HTML page through a small query
// interface so analyzers never depend on a concrete parser.
package document

// Element is one node of the parsed page.
type Element interface {
	// Tag returns the lower-case element name.
	Tag() string
	// Attr returns the attribute value and whether the attribute is present.
	// A present but empty attribute returns ("", true).
	Attr(name string) (string, bool)
	// Text returns the concatenated text of the element and its descendants.
	Text() string
}

// View is a queryable page.
type View interface {
	// FindAll returns every element with the given tag in document order.
	// An empty tag matches every element.
	FindAll(tag string) []Element
	// FindWithAttr returns elements with the tag that carry the attribute.
	FindWithAttr(tag, attr string) []Element
	// FindByAttr returns elements with the tag whose attribute contains value
	// as one of its whitespace-separated tokens (rel="stylesheet preload"
	// matches "stylesheet"). Comparison is case-insensitive.
	FindByAttr(tag, attr, value string) []Element
	// First returns the first element with the tag.
	First(tag string) (Element, bool)
	// Text returns the text of the whole document.
	Text() string
}
