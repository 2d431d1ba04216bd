package richtext

import (
	"sync"
	"time"

	"golang.org/x/net/html"
)

// DefaultDebounce - окно дребезга фиксации набора текста.
const DefaultDebounce = 750 * time.Millisecond

// HistoryEntry - снимок состояния до правки: сериализованное дерево и пара
// закладок выделения на момент снимка.
type HistoryEntry struct {
	SerializedTree string
	Bookmarks      *SelectionBookmarks
	Timestamp      time.Time
}

// History - линейная история отмены/повтора. Фиксация набора текста
// откладывается на debounce-окно; структурные правки (вставка, изображение,
// форматирование, потеря фокуса) фиксируются сразу. Новая фиксация после
// отмены отбрасывает хвост повтора - ветвления нет.
//
// Таймер дребезга - единственный асинхронный элемент движка: один отложенный
// колбек на экземпляр, перевзводимый и отменяемый. Мьютекс защищает стеки от
// гонки между потоком правок и срабатыванием таймера.
type History struct {
	mu       sync.Mutex
	undo     []HistoryEntry
	redo     []HistoryEntry
	debounce time.Duration
	timer    *time.Timer
	pending  *HistoryEntry
}

func NewHistory(debounce time.Duration) *History {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &History{debounce: debounce}
}

// Commit фиксирует снимок: кладет его в стек отмены и очищает стек повтора.
func (h *History) Commit(serializedTree string, bm *SelectionBookmarks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commitLocked(HistoryEntry{
		SerializedTree: serializedTree,
		Bookmarks:      bm,
		Timestamp:      time.Now(),
	})
}

func (h *History) commitLocked(e HistoryEntry) {
	h.undo = append(h.undo, e)
	h.redo = nil
}

// RecordTyping откладывает фиксацию снимка до затишья в наборе. Снимается
// состояние на начало серии: повторные нажатия в пределах окна лишь
// перевзводят таймер. Отложенные правки уже применены к дереву - откладывается
// только их снимок в истории.
func (h *History) RecordTyping(serializedTree string, bm *SelectionBookmarks) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending == nil {
		h.pending = &HistoryEntry{
			SerializedTree: serializedTree,
			Bookmarks:      bm,
			Timestamp:      time.Now(),
		}
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(h.debounce, h.flushPending)
}

func (h *History) flushPending() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushPendingLocked()
}

func (h *History) flushPendingLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if h.pending != nil {
		h.commitLocked(*h.pending)
		h.pending = nil
	}
}

// RecordStructural фиксирует снимок немедленно. Ожидающая debounce-фиксация
// набора не пропадает: сначала сбрасывается она, затем ложится структурный
// снимок - иначе набранный текст выпал бы из цепочки отмены.
func (h *History) RecordStructural(serializedTree string, bm *SelectionBookmarks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushPendingLocked()
	h.commitLocked(HistoryEntry{
		SerializedTree: serializedTree,
		Bookmarks:      bm,
		Timestamp:      time.Now(),
	})
}

// Flush досрочно фиксирует отложенный снимок набора (потеря фокуса).
func (h *History) Flush() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushPendingLocked()
}

// Undo снимает верхний снимок, предварительно кладя текущее состояние в стек
// повтора, заменяет содержимое root деревом снимка и отдает закладки снимка в
// restoreFn. Пустой стек - тихий no-op.
func (h *History) Undo(root *html.Node, restoreFn func(*SelectionBookmarks)) bool {
	h.mu.Lock()
	h.flushPendingLocked()
	if len(h.undo) == 0 {
		h.mu.Unlock()
		return false
	}
	entry := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, HistoryEntry{
		SerializedTree: Serialize(root),
		Timestamp:      time.Now(),
	})
	h.mu.Unlock()

	replaceContent(root, entry.SerializedTree)
	if restoreFn != nil {
		restoreFn(entry.Bookmarks)
	}
	return true
}

// Redo - симметричный перенос из стека повтора в стек отмены.
func (h *History) Redo(root *html.Node, restoreFn func(*SelectionBookmarks)) bool {
	h.mu.Lock()
	if len(h.redo) == 0 {
		h.mu.Unlock()
		return false
	}
	entry := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, HistoryEntry{
		SerializedTree: Serialize(root),
		Timestamp:      time.Now(),
	})
	h.mu.Unlock()

	replaceContent(root, entry.SerializedTree)
	if restoreFn != nil {
		restoreFn(entry.Bookmarks)
	}
	return true
}

// Clear опустошает историю целиком. Вызывается хостовым таймером простоя.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.pending = nil
	h.undo = nil
	h.redo = nil
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0 || h.pending != nil
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// replaceContent замещает детей root деревом из сериализованного снимка.
func replaceContent(root *html.Node, serialized string) {
	for c := root.FirstChild; c != nil; c = root.FirstChild {
		root.RemoveChild(c)
	}
	for _, n := range parseFragment(serialized) {
		root.AppendChild(n)
	}
}
