package richtext

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
)

type fakeSurface struct {
	sel SelectionRange
	has bool
}

func (f *fakeSurface) Selection() (SelectionRange, bool) { return f.sel, f.has }

func (f *fakeSurface) SetSelection(sel SelectionRange) { f.sel, f.has = sel, true }

type fakeClipboard struct {
	html    string
	text    string
	hasHTML bool
	hasText bool
}

func (f *fakeClipboard) ReadHTML() (string, bool) { return f.html, f.hasHTML }

func (f *fakeClipboard) ReadText() (string, bool) { return f.text, f.hasText }

func TestEngineInsertText(t *testing.T) {
	var notified int
	e := NewEngine("", nil, time.Hour, func(plain, markup string) { notified++ })

	e.InsertText("Hello")
	e.InsertText(" World")

	if got := e.Markup(); got != "Hello World" {
		t.Errorf("markup = %q", got)
	}
	if got := e.PlainText(); got != "Hello World" {
		t.Errorf("plain = %q", got)
	}
	if notified != 2 {
		t.Errorf("notified %d times, want 2", notified)
	}
	if !e.History().CanUndo() {
		t.Error("typing burst not undoable")
	}
}

func TestEngineUndoRedoTypingBurst(t *testing.T) {
	e := NewEngine("", nil, time.Hour, nil)

	e.InsertText("Hello")
	e.InsertText(" World")

	// Вся серия набора откатывается одним шагом.
	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if got := e.Markup(); got != "<p></p>" {
		t.Fatalf("after undo: %q", got)
	}
	if !e.Redo() {
		t.Fatal("redo failed")
	}
	if got := e.Markup(); got != "Hello World" {
		t.Errorf("after redo: %q", got)
	}
}

func TestEnginePasteSanitizesHTML(t *testing.T) {
	surface := &fakeSurface{
		sel: SelectionRange{StartPath: []int{0}, StartOffset: 6, EndPath: []int{0}, EndOffset: 11},
		has: true,
	}
	e := NewEngine("Hello World", surface, time.Hour, nil)

	e.Paste(&fakeClipboard{html: `<b>Bridge</b><script>alert(1)</script>`, hasHTML: true})

	want := `Hello <span style="font-weight:bold">Bridge</span>`
	if got := e.Markup(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEnginePastePlainTextFallback(t *testing.T) {
	e := NewEngine("x", nil, time.Hour, nil)

	e.Paste(&fakeClipboard{text: "a\nb", hasText: true})

	if got := e.Markup(); got != "xa<br/>b" {
		t.Errorf("got %q", got)
	}
}

func TestEnginePasteIntoEmptyDocument(t *testing.T) {
	e := NewEngine("", nil, time.Hour, nil)

	e.Paste(&fakeClipboard{text: "hi", hasText: true})

	// Плейсхолдер пустого документа уступает место содержимому.
	if got := e.Markup(); got != "hi" {
		t.Errorf("got %q", got)
	}
}

func TestEngineDeleteSelection(t *testing.T) {
	surface := &fakeSurface{
		sel: SelectionRange{StartPath: []int{0}, StartOffset: 5, EndPath: []int{0}, EndOffset: 11},
		has: true,
	}
	e := NewEngine("Hello World", surface, time.Hour, nil)

	e.DeleteSelection()

	if got := e.Markup(); got != "Hello" {
		t.Errorf("got %q", got)
	}
	if !surface.sel.Collapsed {
		t.Error("selection not collapsed after delete")
	}
	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if got := e.Markup(); got != "Hello World" {
		t.Errorf("after undo: %q", got)
	}
}

// Диапазон с границами в разных поддеревьях: покрытые void-ноды и элементы
// должны удаляться целиком, а не только текст.
func TestEngineDeleteSelectionAcrossElements(t *testing.T) {
	surface := &fakeSurface{
		sel: SelectionRange{StartPath: []int{0, 0}, StartOffset: 1, EndPath: []int{2}, EndOffset: 1},
		has: true,
	}
	e := NewEngine(`<a href="/x">ab</a><img src="/y" data-blob-id="1"/>cd`, surface, time.Hour, nil)
	before := e.Markup()

	e.DeleteSelection()

	if got := e.Markup(); got != `<a href="/x">a</a>d` {
		t.Errorf("got %q", got)
	}
	if !surface.sel.Collapsed {
		t.Error("selection not collapsed after delete")
	}
	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if got := e.Markup(); got != before {
		t.Errorf("after undo: %q, want %q", got, before)
	}
}

func TestEngineInsertRemoveImage(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	e := NewEngine("text", nil, time.Hour, nil)

	e.InsertImage(ImageRef{ID: id, SourceRef: "/api/assets/" + id.String() + "/"})

	want := `text<img src="/api/assets/` + id.String() + `/" data-blob-id="` + id.String() + `"/>`
	if got := e.Markup(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	if !e.RemoveImage(id) {
		t.Fatal("RemoveImage failed")
	}
	if got := e.Markup(); got != "text" {
		t.Errorf("after remove: %q", got)
	}
	if e.RemoveImage(id) {
		t.Error("second RemoveImage succeeded")
	}
}

func TestEngineApplyFormat(t *testing.T) {
	surface := &fakeSurface{
		sel: SelectionRange{StartPath: []int{0}, StartOffset: 0, EndPath: []int{0}, EndOffset: 5},
		has: true,
	}
	e := NewEngine("Hello", surface, time.Hour, nil)

	e.ApplyFormat(StyleSet{StyleBold: "true"})

	if got := e.Markup(); got != `<span style="font-weight:bold">Hello</span>` {
		t.Fatalf("got %q", got)
	}
	if !e.History().CanUndo() {
		t.Fatal("format not recorded in history")
	}
	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if got := e.Markup(); got != "Hello" {
		t.Errorf("after undo: %q", got)
	}
}

// Формат без эффекта не засоряет историю.
func TestEngineApplyFormatNoOpSkipsHistory(t *testing.T) {
	e := NewEngine("text", nil, time.Hour, nil)

	e.ApplyFormat(StyleSet{})

	if e.History().CanUndo() {
		t.Error("no-op format recorded in history")
	}
}

func TestEngineBlurFlushesTyping(t *testing.T) {
	e := NewEngine("", nil, time.Hour, nil)

	e.InsertText("a")
	e.Blur()
	e.InsertText("b")

	// После Blur набор "b" - отдельный шаг отмены.
	e.Undo()
	if got := e.Markup(); got != "a" {
		t.Errorf("after first undo: %q", got)
	}
	e.Undo()
	if got := e.Markup(); got != "<p></p>" {
		t.Errorf("after second undo: %q", got)
	}
}
