package libertyconf

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"
)

// ErrNotXML is returned for documents that can not be parsed as XML.
var ErrNotXML = errors.New("libertyconf: not recognized as XML")

const rootElement = "server"

// Document is a parsed configuration document. Element and attribute lookups
// match local names, so namespace prefixes are ignored.
type Document struct {
	// Location is the canonical location the document was loaded from.
	Location string

	Root *etree.Element
}

// IsServer reports whether the root element is <server>.
func (d *Document) IsServer() bool {
	return d.Root != nil && d.Root.Tag == rootElement
}

// ParseDocument parses a configuration document.
func ParseDocument(location string, data []byte) (*Document, error) {
	doc := etree.NewDocument()

	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrNotXML, location, err)
	}

	switch roots := doc.ChildElements(); len(roots) {
	case 0:
		return nil, fmt.Errorf("%w: %s: no root element", ErrNotXML, location)
	case 1:
		return &Document{
			Location: location,
			Root:     roots[0],
		}, nil
	}

	return nil, fmt.Errorf("%w: %s: multiple root elements", ErrNotXML, location)
}

// childElements returns direct children of elem with one of the given tags,
// in document order.
func childElements(elem *etree.Element, tags ...string) []*etree.Element {
	var children []*etree.Element

	for _, child := range elem.ChildElements() {
		if slices.Contains(tags, child.Tag) {
			children = append(children, child)
		}
	}

	return children
}

// attrValue returns the trimmed value of the attribute, or an empty string.
func attrValue(elem *etree.Element, name string) string {
	return strings.TrimSpace(elem.SelectAttrValue(name, ""))
}
