//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/editor"
	"github.com/fsmforge/fsmforge/backend-go/internal/export"
	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
	"github.com/fsmforge/fsmforge/backend-go/internal/scene"
)

var ctrl *editor.Controller

func main() {
	ctrl = editor.New(jsProps{})

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	api.Set("newDiagram", js.FuncOf(newDiagram))
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("setMode", js.FuncOf(setMode))
	api.Set("setSnapToGrid", js.FuncOf(setSnapToGrid))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("doubleClick", js.FuncOf(doubleClick))
	api.Set("keyPress", js.FuncOf(keyPress))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("selectAll", js.FuncOf(selectAll))
	api.Set("deleteSelection", js.FuncOf(deleteSelection))
	api.Set("markClean", js.FuncOf(markClean))
	api.Set("setPropertyHandlers", js.FuncOf(setPropertyHandlers))

	// --- Queries (frontend ← backend) ---
	api.Set("render", js.FuncOf(render))
	api.Set("exportDocument", js.FuncOf(exportDocument))
	api.Set("exportText", js.FuncOf(exportText))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	api.Set("getMode", js.FuncOf(getMode))
	api.Set("canUndo", js.FuncOf(canUndo))
	api.Set("canRedo", js.FuncOf(canRedo))
	api.Set("isDirty", js.FuncOf(isDirty))

	js.Global().Set("fsmforgeEditor", api)
	js.Global().Set("fsmforgeWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// jsProps bridges the property-entry flow to JavaScript handlers. Each
// handler receives the defaults as JSON and returns the confirmed
// snapshot as JSON, or null to dismiss.
type jsProps struct{}

var (
	statePropsFn      js.Value
	transitionPropsFn js.Value
	commentPropsFn    js.Value
)

func callPropsFn(fn js.Value, defaults any, isNew bool, out any) bool {
	if fn.Type() != js.TypeFunction {
		return true // no handler: confirm defaults unchanged
	}
	data, err := json.Marshal(defaults)
	if err != nil {
		return false
	}
	result := fn.Invoke(string(data), isNew)
	if result.Type() != js.TypeString {
		return false
	}
	return json.Unmarshal([]byte(result.String()), out) == nil
}

func (jsProps) EditState(d diagram.StateSnapshot, isNew bool) (diagram.StateSnapshot, bool) {
	out := d
	ok := callPropsFn(statePropsFn, d, isNew, &out)
	return out, ok
}

func (jsProps) EditTransition(d diagram.TransitionSnapshot, isNew bool) (diagram.TransitionSnapshot, bool) {
	out := d
	ok := callPropsFn(transitionPropsFn, d, isNew, &out)
	return out, ok
}

func (jsProps) EditComment(d diagram.CommentSnapshot, isNew bool) (diagram.CommentSnapshot, bool) {
	out := d
	ok := callPropsFn(commentPropsFn, d, isNew, &out)
	return out, ok
}

func setPropertyHandlers(this js.Value, args []js.Value) interface{} {
	if len(args) > 0 {
		statePropsFn = args[0]
	}
	if len(args) > 1 {
		transitionPropsFn = args[1]
	}
	if len(args) > 2 {
		commentPropsFn = args[2]
	}
	return nil
}

// --- Command Handlers ---

func newDiagram(this js.Value, args []js.Value) interface{} {
	ctrl.NewDiagram()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	var doc diagram.Document
	if err := json.Unmarshal([]byte(args[0].String()), &doc); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	ctrl.Import(doc)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func setMode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	switch args[0].String() {
	case "add-state":
		ctrl.SetMode(editor.ModeAddState)
	case "add-transition":
		ctrl.SetMode(editor.ModeAddTransition)
	case "add-comment":
		ctrl.SetMode(editor.ModeAddComment)
	default:
		ctrl.SetMode(editor.ModeSelect)
	}
	return nil
}

func setSnapToGrid(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	ctrl.SetSnapToGrid(args[0].Bool())
	return nil
}

func pointAt(args []js.Value) (geom.Point, bool) {
	if len(args) < 2 {
		return geom.Point{}, false
	}
	return geom.Point{X: args[0].Float(), Y: args[1].Float()}, true
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	p, ok := pointAt(args)
	if !ok {
		return nil
	}
	if err := ctrl.PointerDown(p); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if p, ok := pointAt(args); ok {
		ctrl.PointerMove(p)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if p, ok := pointAt(args); ok {
		ctrl.PointerUp(p)
	}
	return nil
}

func doubleClick(this js.Value, args []js.Value) interface{} {
	p, ok := pointAt(args)
	if !ok {
		return nil
	}
	if err := ctrl.PointerDoubleClick(p); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func keyPress(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	switch args[0].String() {
	case "Escape":
		ctrl.KeyPress(editor.KeyEscape)
	case "Delete", "Backspace":
		ctrl.KeyPress(editor.KeyDelete)
	}
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ctrl.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ctrl.Redo())
}

func selectAll(this js.Value, args []js.Value) interface{} {
	ctrl.SelectAll()
	return nil
}

func deleteSelection(this js.Value, args []js.Value) interface{} {
	ctrl.DeleteSelection()
	return nil
}

func markClean(this js.Value, args []js.Value) interface{} {
	ctrl.MarkClean()
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	out, err := scene.ToJSON(scene.Compile(ctrl))
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func exportDocument(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(ctrl.Export())
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(string(data))
}

func exportText(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing format"})
	}
	out, err := export.Render(ctrl.Export(), export.Format(args[0].String()))
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(out)
}

func hitTest(this js.Value, args []js.Value) interface{} {
	p, ok := pointAt(args)
	if !ok {
		return js.Null()
	}
	e := ctrl.HitTest(p)
	if e == nil {
		return js.Null()
	}
	return js.ValueOf(e.EntityID())
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	b := scene.SelectionBounds(ctrl)
	return js.ValueOf(map[string]interface{}{
		"x":      b.X,
		"y":      b.Y,
		"width":  b.Width,
		"height": b.Height,
	})
}

func getMode(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ctrl.Mode().String())
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ctrl.CanUndo())
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ctrl.CanRedo())
}

func isDirty(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(ctrl.IsDirty())
}
