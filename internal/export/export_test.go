package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
)

func sampleDoc() diagram.Document {
	return diagram.Document{
		States: []diagram.StateSnapshot{
			{Name: "Idle", Rect: geom.Rect{X: 0, Y: 0, Width: 120, Height: 60}, IsInitial: true},
			{Name: "Done", Rect: geom.Rect{X: 300, Y: 0, Width: 120, Height: 60}, IsFinal: true, Color: "#FFCDD2"},
		},
		Transitions: []diagram.TransitionSnapshot{
			{Source: "Idle", Target: "Done", Event: "finish", Guard: "ready"},
		},
		Comments: []diagram.CommentSnapshot{
			{Text: "reviewed by QA", X: 50, Y: 200},
		},
	}
}

func TestRenderDispatch(t *testing.T) {
	doc := sampleDoc()

	out, err := Render(doc, FormatDOT)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph fsm {"))

	out, err = Render(doc, FormatMermaid)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "stateDiagram-v2"))

	_, err = Render(doc, Format("svg"))
	assert.ErrorContains(t, err, "unknown format")
}

func TestToDOT(t *testing.T) {
	out := ToDOT(sampleDoc())

	assert.Contains(t, out, "rankdir=LR;")
	assert.Contains(t, out, `"Idle" [fillcolor="#E3F2FD"];`)
	assert.Contains(t, out, `"Done" [fillcolor="#FFCDD2", peripheries=2];`)

	// Initial states get a point-shaped entry node.
	assert.Contains(t, out, "__start0 [shape=point];")
	assert.Contains(t, out, `__start0 -> "Idle";`)

	assert.Contains(t, out, `"Idle" -> "Done" [label="finish [ready]"];`)
	assert.Contains(t, out, `__note0 [shape=note, fillcolor="#FFFDE7", label="reviewed by QA"];`)
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestToDOTUnlabeledEdge(t *testing.T) {
	doc := diagram.Document{
		States: []diagram.StateSnapshot{{Name: "A"}, {Name: "B"}},
		Transitions: []diagram.TransitionSnapshot{
			{Source: "A", Target: "B"},
		},
	}

	out := ToDOT(doc)
	assert.Contains(t, out, `"A" -> "B";`)
	assert.NotContains(t, out, "label=")
}

func TestToMermaid(t *testing.T) {
	out := ToMermaid(sampleDoc())

	assert.Contains(t, out, "\tstate \"Idle\" as s0\n")
	assert.Contains(t, out, "\tstate \"Done\" as s1\n")
	assert.Contains(t, out, "\t[*] --> s0\n")
	assert.Contains(t, out, "\ts0 --> s1 : finish [ready]\n")
	assert.Contains(t, out, "\ts1 --> [*]\n")
	assert.Contains(t, out, "\t%% reviewed by QA\n")
}

func TestToMermaidEscapesLabel(t *testing.T) {
	doc := diagram.Document{
		States: []diagram.StateSnapshot{{Name: "A"}, {Name: "B"}},
		Transitions: []diagram.TransitionSnapshot{
			{Source: "A", Target: "B", Event: "tick", Action: "x = 1"},
		},
	}

	out := ToMermaid(doc)
	// The action separator would otherwise read as a Mermaid label colon.
	assert.Contains(t, out, "s0 --> s1 : tick /{x = 1}")
	assert.NotContains(t, out, "label")
}

func TestToMermaidSkipsDanglingTransitions(t *testing.T) {
	doc := diagram.Document{
		States: []diagram.StateSnapshot{{Name: "A"}},
		Transitions: []diagram.TransitionSnapshot{
			{Source: "A", Target: "Gone", Event: "x"},
			{Source: "Gone", Target: "A", Event: "y"},
		},
	}

	out := ToMermaid(doc)
	assert.NotContains(t, out, "-->")
}

func TestToMermaidMultilineComment(t *testing.T) {
	doc := diagram.Document{
		Comments: []diagram.CommentSnapshot{{Text: "line one\nline two"}},
	}

	out := ToMermaid(doc)
	assert.Contains(t, out, "\t%% line one\n")
	assert.Contains(t, out, "\t%% line two\n")
}
