// Package export renders a diagram document to interchange text formats:
// Graphviz DOT and Mermaid state diagrams.
package export

import (
	"fmt"
	"strings"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
)

// Format is a supported output format.
type Format string

const (
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// Render converts a document to the requested format.
func Render(doc diagram.Document, format Format) (string, error) {
	switch format {
	case FormatDOT:
		return ToDOT(doc), nil
	case FormatMermaid:
		return ToMermaid(doc), nil
	default:
		return "", fmt.Errorf("unknown format: %s", format)
	}
}

// ToDOT renders the document as a Graphviz digraph. Initial states get a
// point-shaped entry node; final states draw a double border.
func ToDOT(doc diagram.Document) string {
	var b strings.Builder
	b.WriteString("digraph fsm {\n")
	b.WriteString("\trankdir=LR;\n")
	b.WriteString("\tnode [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\"];\n")

	for i, s := range doc.States {
		attrs := []string{fmt.Sprintf("fillcolor=%q", stateColor(s))}
		if s.IsFinal {
			attrs = append(attrs, "peripheries=2")
		}
		fmt.Fprintf(&b, "\t%q [%s];\n", s.Name, strings.Join(attrs, ", "))

		if s.IsInitial {
			fmt.Fprintf(&b, "\t__start%d [shape=point];\n", i)
			fmt.Fprintf(&b, "\t__start%d -> %q;\n", i, s.Name)
		}
	}

	for _, t := range doc.Transitions {
		if label := t.Label(); label != "" {
			fmt.Fprintf(&b, "\t%q -> %q [label=%q];\n", t.Source, t.Target, label)
		} else {
			fmt.Fprintf(&b, "\t%q -> %q;\n", t.Source, t.Target)
		}
	}

	for i, c := range doc.Comments {
		fmt.Fprintf(&b, "\t__note%d [shape=note, fillcolor=%q, label=%q];\n",
			i, diagram.DefaultCommentColor, c.Text)
	}

	b.WriteString("}\n")
	return b.String()
}

// ToMermaid renders the document as a Mermaid state diagram. State names
// are aliased so arbitrary display names never break the syntax.
func ToMermaid(doc diagram.Document) string {
	var b strings.Builder
	b.WriteString("stateDiagram-v2\n")

	alias := make(map[string]string, len(doc.States))
	for i, s := range doc.States {
		alias[s.Name] = fmt.Sprintf("s%d", i)
		fmt.Fprintf(&b, "\tstate %q as s%d\n", s.Name, i)
	}

	for _, s := range doc.States {
		if s.IsInitial {
			fmt.Fprintf(&b, "\t[*] --> %s\n", alias[s.Name])
		}
	}

	for _, t := range doc.Transitions {
		src, ok := alias[t.Source]
		if !ok {
			continue
		}
		tgt, ok := alias[t.Target]
		if !ok {
			continue
		}
		if label := t.Label(); label != "" {
			fmt.Fprintf(&b, "\t%s --> %s : %s\n", src, tgt, mermaidEscape(label))
		} else {
			fmt.Fprintf(&b, "\t%s --> %s\n", src, tgt)
		}
	}

	for _, s := range doc.States {
		if s.IsFinal {
			fmt.Fprintf(&b, "\t%s --> [*]\n", alias[s.Name])
		}
	}

	for _, c := range doc.Comments {
		for _, line := range strings.Split(c.Text, "\n") {
			fmt.Fprintf(&b, "\t%%%% %s\n", line)
		}
	}

	return b.String()
}

func stateColor(s diagram.StateSnapshot) string {
	if s.Color != "" {
		return s.Color
	}
	return diagram.DefaultStateColor
}

// mermaidEscape strips characters that terminate a Mermaid edge label.
func mermaidEscape(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, ":", ";")
	return s
}
