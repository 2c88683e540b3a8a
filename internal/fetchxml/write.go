package fetchxml

import (
	"bufio"
	"encoding/xml"
	"io"
	"strings"

	"github.com/roach88/fetchq/internal/querytree"
)

const indent = "  "

// Write serializes the subtree under root as FetchXML. A nil root writes
// nothing.
func Write(w io.Writer, root *querytree.Node) error {
	if root == nil {
		return nil
	}
	bw := bufio.NewWriter(w)
	writeNode(bw, root, 0)
	return bw.Flush()
}

// String returns the FetchXML of the subtree under root.
func String(root *querytree.Node) string {
	var sb strings.Builder
	_ = Write(&sb, root)
	return sb.String()
}

func writeNode(w *bufio.Writer, n *querytree.Node, depth int) {
	w.WriteString(strings.Repeat(indent, depth))
	w.WriteString("<" + string(n.Name()))

	var text string
	for _, a := range n.Attributes() {
		if a.Name() == querytree.AttrInnerText {
			text = a.Value()
			continue
		}
		if a.Value() == "" {
			continue
		}
		w.WriteString(" " + a.Name() + `="`)
		xml.EscapeText(w, []byte(a.Value()))
		w.WriteString(`"`)
	}

	children := n.Children()
	switch {
	case n.Name() == querytree.NodeValue:
		w.WriteString(">")
		xml.EscapeText(w, []byte(text))
		w.WriteString("</" + string(n.Name()) + ">\n")
	case len(children) == 0:
		w.WriteString(" />\n")
	default:
		w.WriteString(">\n")
		for _, c := range children {
			writeNode(w, c, depth+1)
		}
		w.WriteString(strings.Repeat(indent, depth))
		w.WriteString("</" + string(n.Name()) + ">\n")
	}
}
