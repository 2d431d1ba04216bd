package richtext

import (
	"log/slog"
	"time"

	"github.com/gofrs/uuid"
	"golang.org/x/net/html"
)

// Clipboard - коллаборатор буфера обмена: предпочтительно богатая разметка,
// fallback - plain-текст построчно.
type Clipboard interface {
	ReadHTML() (string, bool)
	ReadText() (string, bool)
}

// Notifier получает (plainText, markup) после каждой зафиксированной мутации.
// Хост отвечает за персистентность и перерисовку.
type Notifier func(plainText, markup string)

// ImageRef - непрозрачная ссылка на изображение во внешнем blob-хранилище.
// Дерево никогда не содержит байтов изображения.
type ImageRef struct {
	ID        uuid.UUID
	SourceRef string
}

// Engine - движок одной редактируемой области: одно дерево документа, одна
// история. Все операции выполняются синхронно на вызывающем потоке; областями
// движки не разделяются, поэтому межобластная конкуренция композициональна.
type Engine struct {
	root    *html.Node
	history *History
	surface SelectionSurface
	notify  Notifier
}

// NewEngine создает движок поверх существующей разметки области.
func NewEngine(markup string, surface SelectionSurface, debounce time.Duration, notify Notifier) *Engine {
	root := Parse(markup)
	Normalize(root)
	return &Engine{
		root:    root,
		history: NewHistory(debounce),
		surface: surface,
		notify:  notify,
	}
}

func (e *Engine) Root() *html.Node { return e.root }

func (e *Engine) Markup() string { return Serialize(e.root) }

func (e *Engine) PlainText() string { return PlainText(e.root) }

func (e *Engine) History() *History { return e.history }

// selection возвращает выделение хоста либо схлопнутый курсор в конце документа.
func (e *Engine) selection() SelectionRange {
	if e.surface != nil {
		if sel, ok := e.surface.Selection(); ok {
			return sel
		}
	}
	return CollapsedAt(nil, countChildren(e.root))
}

func (e *Engine) setSelection(sel SelectionRange) {
	if e.surface != nil {
		e.surface.SetSelection(sel)
	}
}

func (e *Engine) emit() {
	if e.notify != nil {
		e.notify(PlainText(e.root), Serialize(e.root))
	}
}

// InsertText вставляет текст в позицию курсора, предварительно удаляя
// неcхлопнутое выделение. Правка набора: снимок в историю откладывается.
func (e *Engine) InsertText(text string) {
	sel := e.selection()
	before := Serialize(e.root)
	caret, ok := e.deleteRange(sel)
	if !ok {
		return
	}
	inserted := e.spliceAt(caret, []*html.Node{newText(text)})
	if !inserted {
		return
	}
	Normalize(e.root)
	e.history.RecordTyping(before, nil)
	e.emit()
}

// DeleteSelection удаляет выделенный диапазон. Структурная правка.
func (e *Engine) DeleteSelection() {
	sel := e.selection()
	if sel.Collapsed {
		return
	}
	before := Serialize(e.root)
	caret, ok := e.deleteRange(sel)
	if !ok {
		return
	}
	Normalize(e.root)
	e.history.RecordStructural(before, nil)
	e.setSelection(caret)
	e.emit()
}

// Paste санитизирует содержимое буфера обмена и вставляет фрагмент в позицию
// курсора. Структурная правка.
func (e *Engine) Paste(cb Clipboard) {
	if cb == nil {
		return
	}
	var frag []*html.Node
	if markup, ok := cb.ReadHTML(); ok {
		frag = Sanitize(markup)
	} else if text, ok := cb.ReadText(); ok {
		frag = FromPlainText(text)
	}
	if len(frag) == 0 {
		return
	}
	e.insertFragment(frag)
}

// InsertImage вставляет ссылку на изображение из blob-хранилища.
func (e *Engine) InsertImage(ref ImageRef) {
	img := newElement("img")
	setAttr(img, "src", ref.SourceRef)
	if ref.ID != uuid.Nil {
		setAttr(img, "data-blob-id", ref.ID.String())
	}
	e.insertFragment([]*html.Node{img})
}

// RemoveImage удаляет изображение с указанным blob-id. Структурная правка.
// Возвращает false, если изображение не найдено.
func (e *Engine) RemoveImage(id uuid.UUID) bool {
	var img *html.Node
	iterNodes(e.root, func(n *html.Node) bool {
		if isElement(n, "img") && getAttrValue("data-blob-id", n.Attr) == id.String() {
			img = n
			return true
		}
		return false
	})
	if img == nil {
		return false
	}
	before := Serialize(e.root)
	detach(img)
	Normalize(e.root)
	e.history.RecordStructural(before, nil)
	e.emit()
	return true
}

func (e *Engine) insertFragment(frag []*html.Node) {
	sel := e.selection()
	before := Serialize(e.root)
	caret, ok := e.deleteRange(sel)
	if !ok {
		return
	}
	if !e.spliceAt(caret, frag) {
		return
	}
	Normalize(e.root)
	e.history.RecordStructural(before, nil)
	e.emit()
}

// ApplyFormat применяет формат к текущему выделению. Структурная правка.
func (e *Engine) ApplyFormat(format StyleSet) SelectionRange {
	sel := e.selection()
	before := Serialize(e.root)
	res := ApplyFormat(e.root, sel, format)
	if Serialize(e.root) == before {
		return res
	}
	e.history.RecordStructural(before, nil)
	e.setSelection(res)
	e.emit()
	return res
}

// Undo откатывает последнюю зафиксированную правку.
func (e *Engine) Undo() bool {
	ok := e.history.Undo(e.root, e.restoreBookmarks)
	if ok {
		e.emit()
	}
	return ok
}

// Redo возвращает откаченную правку.
func (e *Engine) Redo() bool {
	ok := e.history.Redo(e.root, e.restoreBookmarks)
	if ok {
		e.emit()
	}
	return ok
}

// Blur фиксирует отложенный снимок набора при потере фокуса.
func (e *Engine) Blur() {
	e.history.Flush()
}

// ClearHistory опустошает историю; вызывается хостовым таймером простоя.
func (e *Engine) ClearHistory() {
	e.history.Clear()
}

func (e *Engine) restoreBookmarks(bm *SelectionBookmarks) {
	if bm == nil {
		return
	}
	if sel, ok := RestoreSelection(e.root, bm); ok {
		e.setSelection(sel)
	}
}

// deleteRange удаляет содержимое диапазона и возвращает схлопнутый курсор в
// точке удаления. Схлопнутое выделение проходит насквозь. ok=false - якорь
// не разрешился, мутации не было.
func (e *Engine) deleteRange(sel SelectionRange) (SelectionRange, bool) {
	if sel.Collapsed {
		if resolvePath(e.root, sel.StartPath) == nil {
			return sel, false
		}
		return sel, true
	}

	bm := SaveSelection(e.root, sel)
	if bm == nil {
		return sel, false
	}
	start := findMarker(e.root, bm.StartID)
	end := findMarker(e.root, bm.EndID)
	if start == nil || end == nil {
		RestoreSelection(e.root, bm)
		return sel, false
	}
	splitInlineAncestors(start)
	splitInlineAncestors(end)

	if start.Parent == end.Parent {
		var next *html.Node
		for n := start.NextSibling; n != nil && n != end; n = next {
			next = n.NextSibling
			detach(n)
		}
	} else {
		// Границы в разных поддеревьях: удаляется все, что лежит целиком
		// между маркерами, включая void-ноды и вложенные элементы. Предки
		// конечного маркера не удаляются - обход спускается внутрь них.
		slog.Debug("delete range spans subtree boundary")
		var doomed []*html.Node
		n := nextSkippingSubtree(start, e.root)
		for n != nil && n != end {
			if contains(n, end) {
				n = n.FirstChild
				continue
			}
			doomed = append(doomed, n)
			n = nextSkippingSubtree(n, e.root)
		}
		for _, d := range doomed {
			detach(d)
		}
	}

	caret, ok := RestoreSelection(e.root, bm)
	if !ok {
		return sel, false
	}
	caret.EndPath = caret.StartPath
	caret.EndOffset = caret.StartOffset
	caret.Collapsed = true
	return caret, true
}

// spliceAt вставляет отвязанные ноды фрагмента в точку курсора.
func (e *Engine) spliceAt(caret SelectionRange, frag []*html.Node) bool {
	n := resolvePath(e.root, caret.StartPath)
	if n == nil {
		return false
	}

	if n.Type == html.TextNode {
		rest := splitTextNode(n, caret.StartOffset)
		for _, f := range frag {
			if rest != nil {
				n.Parent.InsertBefore(f, rest)
			} else {
				n.Parent.AppendChild(f)
			}
		}
		return true
	}
	if n.Type != html.ElementNode || isVoid(n) {
		return false
	}
	ref := nthChild(n, caret.StartOffset)
	for _, f := range frag {
		if ref != nil {
			n.InsertBefore(f, ref)
		} else {
			n.AppendChild(f)
		}
	}
	return true
}
