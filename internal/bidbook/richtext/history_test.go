package richtext

import (
	"testing"
	"time"
)

func TestHistoryUndoRedo(t *testing.T) {
	root := NewRoot()
	replaceContent(root, "ab")
	h := NewHistory(DefaultDebounce)

	h.RecordStructural("a", nil)
	replaceContent(root, "abc")
	h.RecordStructural("ab", nil)

	if !h.Undo(root, nil) {
		t.Fatal("undo failed")
	}
	if got := Serialize(root); got != "ab" {
		t.Fatalf("after undo: %q", got)
	}
	if !h.Undo(root, nil) {
		t.Fatal("second undo failed")
	}
	if got := Serialize(root); got != "a" {
		t.Fatalf("after second undo: %q", got)
	}
	if h.Undo(root, nil) {
		t.Error("undo on empty stack succeeded")
	}

	if !h.Redo(root, nil) {
		t.Fatal("redo failed")
	}
	if got := Serialize(root); got != "ab" {
		t.Fatalf("after redo: %q", got)
	}
	if !h.Redo(root, nil) {
		t.Fatal("second redo failed")
	}
	if got := Serialize(root); got != "abc" {
		t.Fatalf("after second redo: %q", got)
	}
	if h.Redo(root, nil) {
		t.Error("redo on empty stack succeeded")
	}
}

// Линейность: новая фиксация после отмены отбрасывает хвост повтора.
func TestHistoryCommitDropsRedo(t *testing.T) {
	root := NewRoot()
	replaceContent(root, "b")
	h := NewHistory(DefaultDebounce)

	h.RecordStructural("a", nil)
	h.Undo(root, nil)
	if !h.CanRedo() {
		t.Fatal("expected redo after undo")
	}

	h.RecordStructural("a", nil)
	if h.CanRedo() {
		t.Error("redo survived new commit")
	}
}

func TestHistoryTypingDebounce(t *testing.T) {
	h := NewHistory(20 * time.Millisecond)

	// Серия нажатий в пределах окна складывается в один снимок начала серии.
	h.RecordTyping("", nil)
	h.RecordTyping("H", nil)
	h.RecordTyping("He", nil)

	if !h.CanUndo() {
		t.Fatal("pending snapshot not visible to CanUndo")
	}

	time.Sleep(60 * time.Millisecond)

	h.mu.Lock()
	undoLen, pending := len(h.undo), h.pending
	h.mu.Unlock()
	if undoLen != 1 {
		t.Fatalf("undo stack = %d, want 1", undoLen)
	}
	if pending != nil {
		t.Error("pending not cleared after debounce")
	}
	if h.undo[0].SerializedTree != "" {
		t.Errorf("committed snapshot = %q, want start of burst", h.undo[0].SerializedTree)
	}
}

// Структурная правка сперва сбрасывает отложенный снимок набора.
func TestHistoryStructuralFlushesTyping(t *testing.T) {
	h := NewHistory(time.Hour)

	h.RecordTyping("", nil)
	h.RecordStructural("Hello", nil)

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) != 2 {
		t.Fatalf("undo stack = %d, want 2", len(h.undo))
	}
	if h.undo[0].SerializedTree != "" || h.undo[1].SerializedTree != "Hello" {
		t.Errorf("stack order wrong: %q, %q", h.undo[0].SerializedTree, h.undo[1].SerializedTree)
	}
}

func TestHistoryUndoFlushesPendingTyping(t *testing.T) {
	root := NewRoot()
	replaceContent(root, "Hi")
	h := NewHistory(time.Hour)

	h.RecordTyping("", nil)

	if !h.Undo(root, nil) {
		t.Fatal("undo failed")
	}
	if got := Serialize(root); got != "" {
		t.Errorf("after undo: %q", got)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(time.Hour)
	h.RecordStructural("a", nil)
	h.RecordTyping("b", nil)

	h.Clear()

	if h.CanUndo() || h.CanRedo() {
		t.Error("history not empty after Clear")
	}
}
