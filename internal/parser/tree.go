package parser

import (
	"bytes"
	"encoding/xml"
	"io"
	"sort"
)

// element is a minimal DOM node built from the token stream. Byte offsets
// into the original source are kept so template content can be re-sliced
// verbatim instead of re-serialized.
type element struct {
	space    string
	local    string
	attrs    []xml.Attr
	children []*element
	parent   *element
	// text accumulates character data from the element's direct children.
	text string
	// start is the byte offset of the element's opening '<'; end is the
	// offset just past its closing tag.
	start int64
	end   int64
	line  int
}

// attr returns the value of the named unqualified attribute, or "".
func (e *element) attr(name string) string {
	for _, a := range e.attrs {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

// hasAttr reports whether the named unqualified attribute is present.
func (e *element) hasAttr(name string) bool {
	for _, a := range e.attrs {
		if a.Name.Local == name && a.Name.Space == "" {
			return true
		}
	}
	return false
}

// isXSLT reports whether the element belongs to the XSLT transform namespace.
// When a document never declares the namespace, the decoder leaves the bare
// prefix in place; the conventional xsl prefix is accepted as a fallback.
func (e *element) isXSLT() bool {
	return e.space == xsltNamespace || e.space == "xsl"
}

// walk visits the element's descendants in document order.
func (e *element) walk(visit func(*element)) {
	for _, child := range e.children {
		visit(child)
		child.walk(visit)
	}
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex struct {
	newlines []int64
}

func newLineIndex(source []byte) *lineIndex {
	idx := &lineIndex{}
	for i, b := range source {
		if b == '\n' {
			idx.newlines = append(idx.newlines, int64(i))
		}
	}
	return idx
}

// lineAt returns the 1-based line number containing the given byte offset.
func (li *lineIndex) lineAt(offset int64) int {
	return sort.Search(len(li.newlines), func(i int) bool {
		return li.newlines[i] >= offset
	}) + 1
}

// parseTree builds the element tree from raw XSLT source, recording byte
// offsets and line numbers per element. It fails only on XML that is not
// well-formed; semantically incomplete XSLT is accepted as-is.
func parseTree(source []byte) (*element, error) {
	decoder := xml.NewDecoder(bytes.NewReader(source))
	lines := newLineIndex(source)

	var stack []*element
	var root *element

	for {
		// InputOffset before Token is where the next token's raw bytes begin.
		offset := decoder.InputOffset()

		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			elem := &element{
				space: t.Name.Space,
				local: t.Name.Local,
				attrs: copyAttrs(t.Attr),
				start: offset,
				line:  lines.lineAt(offset),
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, elem)
				elem.parent = parent
			} else if root == nil {
				root = elem
			}
			stack = append(stack, elem)

		case xml.EndElement:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.end = decoder.InputOffset()
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}

	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}

	return root, nil
}

func copyAttrs(attrs []xml.Attr) []xml.Attr {
	// The decoder reuses its attribute slice between tokens.
	out := make([]xml.Attr, len(attrs))
	copy(out, attrs)
	return out
}
