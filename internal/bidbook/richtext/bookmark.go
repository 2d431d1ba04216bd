package richtext

import (
	"github.com/gofrs/uuid"
	"golang.org/x/net/html"
)

const zeroWidthSpace = "​"

const (
	attrBookmarkID   = "data-bookmark-id"
	attrBookmarkRole = "data-bookmark-role"

	roleStart = "start"
	roleEnd   = "end"
)

// SelectionBookmarks - пара идентификаторов маркеров, переживающих перестройку дерева.
// Живет один шаг мутации: создается перед правкой и безусловно удаляется при восстановлении.
type SelectionBookmarks struct {
	StartID   string
	EndID     string
	Collapsed bool
}

// newMarker создает невидимый span-маркер с ровно одним zero-width плейсхолдером.
func newMarker(id, role string) *html.Node {
	m := newElement("span")
	setAttr(m, attrBookmarkID, id)
	setAttr(m, attrBookmarkRole, role)
	m.AppendChild(newText(zeroWidthSpace))
	return m
}

func isMarker(n *html.Node) bool {
	return isElement(n, "span") && attrExists(attrBookmarkID, n.Attr)
}

func markerID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil.String()
	}
	return id.String()
}

// SaveSelection вставляет маркеры на границы выделения, разбивая текстовые ноды
// при необходимости. Маркер конца вставляется раньше маркера начала, чтобы
// разбиение текста под начальной границей не сместило уже вычисленную конечную.
// Возвращает nil, если выделение не разрешается внутри root.
func SaveSelection(root *html.Node, sel SelectionRange) *SelectionBookmarks {
	bm := &SelectionBookmarks{
		StartID:   markerID(),
		Collapsed: sel.Collapsed,
	}

	if !sel.Collapsed {
		bm.EndID = markerID()
		if !insertMarkerAt(root, sel.EndPath, sel.EndOffset, newMarker(bm.EndID, roleEnd)) {
			return nil
		}
	}
	if !insertMarkerAt(root, sel.StartPath, sel.StartOffset, newMarker(bm.StartID, roleStart)) {
		if bm.EndID != "" {
			if m := findMarker(root, bm.EndID); m != nil {
				detach(m)
			}
		}
		return nil
	}
	return bm
}

// insertMarkerAt вставляет маркер в точку (path, offset). Внутрь br/img маркер
// не вставляется - точка сдвигается на ближайшую границу соседей.
func insertMarkerAt(root *html.Node, path []int, offset int, marker *html.Node) bool {
	n := resolvePath(root, path)
	if n == nil {
		return false
	}

	if n.Type == html.TextNode {
		rest := splitTextNode(n, offset)
		if rest != nil {
			n.Parent.InsertBefore(marker, rest)
		} else {
			n.Parent.AppendChild(marker)
		}
		return true
	}

	if n.Type != html.ElementNode {
		return false
	}
	if isVoid(n) {
		// Точка указывает внутрь пустого элемента - встаем рядом с ним.
		insertAfter(marker, n)
		return true
	}
	if ref := nthChild(n, offset); ref != nil {
		n.InsertBefore(marker, ref)
	} else {
		n.AppendChild(marker)
	}
	return true
}

func findMarker(root *html.Node, id string) *html.Node {
	var found *html.Node
	iterNodes(root, func(n *html.Node) bool {
		if isMarker(n) && getAttrValue(attrBookmarkID, n.Attr) == id {
			found = n
			return true
		}
		return false
	})
	return found
}

// RestoreSelection находит маркеры по id, вычисляет эквивалентное выделение
// как индексы детей в родителях маркеров и удаляет маркеры. Удаление
// безусловно: даже при частичном провале все найденные маркеры снимаются,
// чтобы ни один не просочился в видимое дерево. ok=false означает
// "выделение потеряно" и трактуется вызывающим как no-op, а не фатальный сбой.
func RestoreSelection(root *html.Node, bm *SelectionBookmarks) (SelectionRange, bool) {
	if bm == nil {
		return SelectionRange{}, false
	}

	start := findMarker(root, bm.StartID)
	var end *html.Node
	if !bm.Collapsed {
		end = findMarker(root, bm.EndID)
	}

	cleanup := func() {
		if start != nil {
			detach(start)
		}
		if end != nil {
			detach(end)
		}
	}

	if start == nil || (!bm.Collapsed && end == nil) {
		cleanup()
		return SelectionRange{}, false
	}

	startParent := start.Parent
	startOffset := markerOffset(start)
	var endParent *html.Node
	var endOffset int
	if !bm.Collapsed {
		endParent = end.Parent
		endOffset = markerOffset(end)
	}

	// Пути считаются только после снятия маркеров: сам маркер - ребенок
	// родителя и сдвигал бы индексы пути для всего, что правее него.
	cleanup()

	startPath, ok := nodePath(root, startParent)
	if !ok {
		return SelectionRange{}, false
	}
	if bm.Collapsed {
		return CollapsedAt(startPath, startOffset), true
	}

	endPath, ok := nodePath(root, endParent)
	if !ok {
		return SelectionRange{}, false
	}
	return SelectionRange{
		StartPath:   startPath,
		StartOffset: startOffset,
		EndPath:     endPath,
		EndOffset:   endOffset,
	}, true
}

// markerOffset - индекс маркера среди детей родителя без учета других маркеров.
func markerOffset(m *html.Node) int {
	i := 0
	for s := m.Parent.FirstChild; s != nil && s != m; s = s.NextSibling {
		if isMarker(s) {
			continue
		}
		i++
	}
	return i
}
