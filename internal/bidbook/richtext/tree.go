// Пакет предоставляет headless-движок форматированного текста для ячеек таблиц торговых систем.
// Дерево документа представлено нодами golang.org/x/net/html; пакет отвечает за парсинг и сериализацию
// ограниченного HTML-подмножества, нормализацию дерева после правок, санитизацию вставленной разметки,
// применение форматирования к выделению и историю отмены/повтора.
//
// Основные возможности:
//   - Парсинг и сериализация разметки ячейки (span, br, p, ul, ol, li, a, img).
//   - Сохранение выделения через невидимые маркеры-закладки при структурных правках.
//   - Нормализация дерева: слияние соседних текстовых нод и span с одинаковыми стилями.
//   - Санитизация внешней разметки по allow-list элементов и стилей.
//   - Ограниченная история правок с debounce для набора текста.
package richtext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NewRoot создает пустой корень дерева документа.
func NewRoot() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}
}

// Parse парсит разметку ячейки в дерево документа. Никогда не возвращает ошибку:
// если парсер не смог обработать вход, содержимое становится литеральной текстовой нодой.
func Parse(markup string) *html.Node {
	root := NewRoot()
	for _, n := range parseFragment(markup) {
		root.AppendChild(n)
	}
	return root
}

// parseFragment парсит разметку в список отвязанных нод.
func parseFragment(markup string) []*html.Node {
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return []*html.Node{{Type: html.TextNode, Data: markup}}
	}
	for _, n := range nodes {
		n.Parent = nil
		n.PrevSibling = nil
		n.NextSibling = nil
	}
	return nodes
}

// Serialize сериализует детей корня в строку разметки.
func Serialize(root *html.Node) string {
	var sb strings.Builder
	for el := root.FirstChild; el != nil; el = el.NextSibling {
		if err := html.Render(&sb, el); err != nil {
			continue
		}
	}
	return sb.String()
}

// PlainText извлекает текстовое представление дерева: br и начала блоков
// становятся переносами строк, изображения заменяются своим alt-текстом,
// маркеры-закладки опускаются.
func PlainText(root *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if isMarker(n) {
			return
		}
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(strings.ReplaceAll(n.Data, zeroWidthSpace, ""))
			return
		case n.Type == html.ElementNode && n.Data == "br":
			sb.WriteString("\n")
			return
		case n.Type == html.ElementNode && n.Data == "img":
			sb.WriteString(getAttrValue("alt", n.Attr))
			return
		case n.Type == html.ElementNode && (n.Data == "p" || n.Data == "li"):
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for el := root.FirstChild; el != nil; el = el.NextSibling {
		walk(el)
	}
	return strings.TrimSpace(sb.String())
}

func iterNodes(node *html.Node, f func(child *html.Node) bool) {
	if f(node) {
		return
	}
	for p := node.FirstChild; p != nil; p = p.NextSibling {
		iterNodes(p, f)
	}
}

func getAttrValue(key string, attrs []html.Attribute) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func attrExists(key string, attrs []html.Attribute) bool {
	for _, attr := range attrs {
		if attr.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func isElement(n *html.Node, name string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == name
}

// isVoid - нода без детей по определению.
func isVoid(n *html.Node) bool {
	return isElement(n, "br") || isElement(n, "img")
}

func isBlock(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "p", "div", "ul", "ol", "li":
		return true
	}
	return false
}

// isPlainSpan - span без закладочных атрибутов, участвующий в стилевых слияниях.
func isPlainSpan(n *html.Node) bool {
	return isElement(n, "span") && !attrExists(attrBookmarkID, n.Attr)
}

func newElement(name string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     name,
		DataAtom: atom.Lookup([]byte(name)),
	}
}

func newText(content string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: content}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// insertAfter вставляет n сразу после ref внутри родителя ref.
func insertAfter(n, ref *html.Node) {
	if ref.NextSibling != nil {
		ref.Parent.InsertBefore(n, ref.NextSibling)
	} else {
		ref.Parent.AppendChild(n)
	}
}

// splitTextNode разбивает текстовую ноду по руническому смещению и возвращает
// ноду после точки разреза. При offset на границе разбиение не нужно и
// возвращается сосед справа (возможно nil).
func splitTextNode(t *html.Node, offset int) *html.Node {
	runes := []rune(t.Data)
	if offset <= 0 {
		return t
	}
	if offset >= len(runes) {
		return t.NextSibling
	}
	rest := newText(string(runes[offset:]))
	t.Data = string(runes[:offset])
	insertAfter(rest, t)
	return rest
}

// childIndex возвращает позицию ноды среди детей родителя.
func childIndex(n *html.Node) int {
	i := 0
	for s := n.Parent.FirstChild; s != nil && s != n; s = s.NextSibling {
		i++
	}
	return i
}

// nthChild возвращает ребенка с индексом i либо nil, если индекс за границей.
func nthChild(n *html.Node, i int) *html.Node {
	c := n.FirstChild
	for ; c != nil && i > 0; c = c.NextSibling {
		i--
	}
	return c
}

func countChildren(n *html.Node) int {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		i++
	}
	return i
}

// nextInDocument обходит дерево в порядке документа, не покидая root.
func nextInDocument(n, root *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil && n != root {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

// nextSkippingSubtree - следующая нода в порядке документа без захода в
// поддерево n.
func nextSkippingSubtree(n, root *html.Node) *html.Node {
	for n != nil && n != root {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

// contains сообщает, находится ли n внутри поддерева root (включая сам root).
func contains(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}
