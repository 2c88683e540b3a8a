package fetchxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/fetchq/internal/querytree"
)

// Importer receives the nodes of a parsed document in document order.
// *querytree.Service implements it.
type Importer interface {
	ImportNode(name querytree.NodeName, parent *querytree.Node, attrs []querytree.AttributeValue) (*querytree.Node, error)
}

// ParseError reports where a document could not be imported.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("fetchxml: line %d, column %d: %v", e.Line, e.Column, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// ErrEmptyDocument is returned when the input holds no element.
var ErrEmptyDocument = errors.New("fetchxml: document has no root element")

// pendingValue collects the text of an open value element. Value nodes are
// imported at their end tag, once their inner text is known.
type pendingValue struct {
	cond  *querytree.Node
	attrs []querytree.AttributeValue
	text  strings.Builder
}

// Parse reads one FetchXML document from r and imports it through imp.
// It returns the root node.
func Parse(r io.Reader, imp Importer) (*querytree.Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true

	var (
		root  *querytree.Node
		stack []*querytree.Node
		value *pendingValue
	)

	fail := func(err error) error {
		line, col := dec.InputPos()
		return &ParseError{Line: line, Column: col, Err: err}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fail(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name, ok := querytree.ParseNodeName(t.Name.Local)
			if !ok {
				return nil, fail(fmt.Errorf("unknown element <%s>", t.Name.Local))
			}
			if value != nil {
				return nil, fail(fmt.Errorf("<%s> cannot appear inside <%s>", name, querytree.NodeValue))
			}

			var parent *querytree.Node
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			} else if root != nil {
				return nil, fail(fmt.Errorf("second root element <%s>", name))
			}

			attrs := attributes(t.Attr)
			if name == querytree.NodeValue {
				if parent == nil {
					return nil, fail(fmt.Errorf("<%s> cannot be the root element", name))
				}
				value = &pendingValue{cond: parent, attrs: attrs}
				continue
			}

			n, err := imp.ImportNode(name, parent, attrs)
			if err != nil {
				return nil, fail(err)
			}
			if root == nil {
				root = n
			}
			stack = append(stack, n)

		case xml.CharData:
			if value != nil {
				value.text.Write(t)
			}

		case xml.EndElement:
			if value != nil {
				attrs := append(value.attrs, querytree.AttributeValue{
					Name:  querytree.AttrInnerText,
					Value: strings.TrimSpace(value.text.String()),
				})
				if _, err := imp.ImportNode(querytree.NodeValue, value.cond, attrs); err != nil {
					return nil, fail(err)
				}
				value = nil
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// attributes converts XML attributes, dropping namespace declarations.
func attributes(in []xml.Attr) []querytree.AttributeValue {
	out := make([]querytree.AttributeValue, 0, len(in))
	for _, a := range in {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		out = append(out, querytree.AttributeValue{Name: a.Name.Local, Value: a.Value})
	}
	return out
}
