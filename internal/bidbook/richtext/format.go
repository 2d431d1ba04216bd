package richtext

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// StyleKey - фиксированное перечисление стилевых ключей движка.
type StyleKey string

const (
	StyleColor           StyleKey = "color"
	StyleBackgroundColor StyleKey = "backgroundColor"
	StyleFontFamily      StyleKey = "fontFamily"
	StyleFontSize        StyleKey = "fontSize"
	StyleBold            StyleKey = "bold"
	StyleItalic          StyleKey = "italic"
	StyleUnderline       StyleKey = "underline"
	StyleStrikethrough   StyleKey = "strikethrough"

	StyleTextAlign   StyleKey = "textAlign"
	StyleListType    StyleKey = "listType"
	StyleIndentLevel StyleKey = "indentLevel"
)

const (
	ListBullet  = "bullet"
	ListOrdered = "ordered"
)

// indentClassPrefix - класс отступа блока, bb-indent-1..bb-indent-9.
const indentClassPrefix = "bb-indent-"

const maxIndentLevel = 9

// StyleSet - набор стилей. Ключи bold/italic/underline/strikethrough несут "true",
// пустое значение в формате снимает ключ при слиянии.
type StyleSet map[StyleKey]string

func isBlockKey(k StyleKey) bool {
	return k == StyleTextAlign || k == StyleListType || k == StyleIndentLevel
}

func (s StyleSet) Equal(o StyleSet) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		if o[k] != v {
			return false
		}
	}
	return true
}

// Merged возвращает копию s, перекрытую поключево значениями over.
// Пустое значение в over удаляет ключ.
func (s StyleSet) Merged(over StyleSet) StyleSet {
	res := StyleSet{}
	for k, v := range s {
		res[k] = v
	}
	for k, v := range over {
		if v == "" {
			delete(res, k)
			continue
		}
		res[k] = v
	}
	return res
}

func (s StyleSet) charOnly() StyleSet {
	res := StyleSet{}
	for k, v := range s {
		if !isBlockKey(k) {
			res[k] = v
		}
	}
	return res
}

func (s StyleSet) blockOnly() StyleSet {
	res := StyleSet{}
	for k, v := range s {
		if isBlockKey(k) {
			res[k] = v
		}
	}
	return res
}

// Порядок CSS-свойств при сериализации фиксирован ради детерминизма.
var cssOrder = []struct {
	prop string
	key  StyleKey
}{
	{"color", StyleColor},
	{"background-color", StyleBackgroundColor},
	{"font-family", StyleFontFamily},
	{"font-size", StyleFontSize},
	{"font-weight", StyleBold},
	{"font-style", StyleItalic},
	{"text-decoration", ""},
	{"text-align", StyleTextAlign},
}

// styleAttr сериализует набор символьных и блочных стилей в значение атрибута style.
func (s StyleSet) styleAttr() string {
	var parts []string
	for _, m := range cssOrder {
		switch m.prop {
		case "font-weight":
			if s[StyleBold] == "true" {
				parts = append(parts, "font-weight:bold")
			}
		case "font-style":
			if s[StyleItalic] == "true" {
				parts = append(parts, "font-style:italic")
			}
		case "text-decoration":
			var deco []string
			if s[StyleUnderline] == "true" {
				deco = append(deco, "underline")
			}
			if s[StyleStrikethrough] == "true" {
				deco = append(deco, "line-through")
			}
			if len(deco) > 0 {
				parts = append(parts, "text-decoration:"+strings.Join(deco, " "))
			}
		default:
			if v := s[m.key]; v != "" {
				parts = append(parts, m.prop+":"+v)
			}
		}
	}
	return strings.Join(parts, ";")
}

// parseStyleAttr парсит значение атрибута style в StyleSet.
func parseStyleAttr(style string) StyleSet {
	s := StyleSet{}
	for _, part := range strings.Split(style, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		prop := strings.TrimSpace(strings.ToLower(kv[0]))
		val := strings.TrimSpace(kv[1])
		if val == "" || val == "inherit" {
			continue
		}
		switch prop {
		case "color":
			s[StyleColor] = val
		case "background-color":
			s[StyleBackgroundColor] = val
		case "font-family":
			s[StyleFontFamily] = val
		case "font-size":
			s[StyleFontSize] = val
		case "font-weight":
			if w, err := strconv.Atoi(val); err == nil {
				if w >= 600 {
					s[StyleBold] = "true"
				}
			} else if val == "bold" || val == "bolder" {
				s[StyleBold] = "true"
			}
		case "font-style":
			if val == "italic" {
				s[StyleItalic] = "true"
			}
		case "text-decoration", "text-decoration-line":
			if strings.Contains(val, "underline") {
				s[StyleUnderline] = "true"
			}
			if strings.Contains(val, "line-through") {
				s[StyleStrikethrough] = "true"
			}
		case "text-align":
			s[StyleTextAlign] = val
		}
	}
	return s
}

func styleSetOf(n *html.Node) StyleSet {
	return parseStyleAttr(getAttrValue("style", n.Attr))
}

// applyStyleAttr выставляет либо снимает атрибут style на ноде.
func applyStyleAttr(n *html.Node, s StyleSet) {
	attr := s.styleAttr()
	if attr == "" {
		removeAttr(n, "style")
		return
	}
	setAttr(n, "style", attr)
}

// effectiveStyle - действующий стиль текстовой ноды: слияние стилей span-предков,
// ближайший побеждает. Маркеры стиле-прозрачны и не участвуют в наборе.
func effectiveStyle(root, n *html.Node) StyleSet {
	res := StyleSet{}
	for p := n.Parent; p != nil && p != root; p = p.Parent {
		if !isPlainSpan(p) {
			continue
		}
		for k, v := range styleSetOf(p) {
			if _, ok := res[k]; !ok {
				res[k] = v
			}
		}
	}
	return res
}

// ApplyFormat применяет формат к выделению и возвращает новое выделение,
// обычно заново охватывающее отформатированный участок, чтобы повторные
// применения компоновались. Единственная восстановимая ошибка - неразрешимый
// якорь выделения: мутация пропускается и выделение возвращается как есть.
func ApplyFormat(root *html.Node, sel SelectionRange, format StyleSet) SelectionRange {
	anchor := resolvePath(root, sel.StartPath)
	if anchor == nil {
		return sel
	}

	if block := format.blockOnly(); len(block) > 0 {
		applyBlockFormat(root, anchor, block)
	}

	char := format.charOnly()
	if len(char) == 0 {
		Normalize(root)
		if contains(root, anchor) {
			if expanded, ok := expandToBlock(root, anchor); ok {
				return expanded
			}
		}
		return sel
	}

	if sel.Collapsed {
		// Явный запрос формата на схлопнутом курсоре - действие уровня блока.
		expanded, ok := expandToBlock(root, anchor)
		if !ok {
			Normalize(root)
			return sel
		}
		sel = expanded
	}

	bm := SaveSelection(root, sel)
	if bm == nil {
		Normalize(root)
		return sel
	}
	applyCharFormat(root, bm, char)
	Normalize(root)
	if restored, ok := RestoreSelection(root, bm); ok {
		return restored
	}
	return sel
}

// applyCharFormat переформатирует текст между маркерами: каждый покрытый
// сегмент получает новый span, чей стиль - действующий стиль сегмента,
// перекрытый входящим форматом. Действующие стили снимаются до любых
// перестроек: после отвязки от предков они были бы потеряны.
func applyCharFormat(root *html.Node, bm *SelectionBookmarks, format StyleSet) {
	start := findMarker(root, bm.StartID)
	end := findMarker(root, bm.EndID)
	if start == nil || end == nil {
		return
	}

	splitInlineAncestors(start)
	splitInlineAncestors(end)

	covered := coveredTextNodes(root, start, end)
	styles := make(map[*html.Node]StyleSet, len(covered))
	for _, t := range covered {
		styles[t] = effectiveStyle(root, t)
	}

	wrapped := make(map[*html.Node]StyleSet, len(covered))
	for _, t := range covered {
		merged := styles[t].Merged(format)
		if len(merged) == 0 {
			// Снятие последнего стиля: сегмент остается голым текстом.
			continue
		}
		span := newElement("span")
		applyStyleAttr(span, merged)
		t.Parent.InsertBefore(span, t)
		t.Parent.RemoveChild(t)
		span.AppendChild(t)
		wrapped[t] = merged
	}

	// Полностью покрытые span-обертки теперь избыточны: их стиль заново
	// заявлен на каждом сегменте.
	if start.Parent == end.Parent {
		var next *html.Node
		for n := start.NextSibling; n != nil && n != end; n = next {
			next = n.NextSibling
			unwrapRedundantSpans(n, wrapped)
		}
	}
}

// splitInlineAncestors выносит маркер на уровень блока, разрезая каждый
// span-предок в точке маркера. Звенья за пределами span (ссылки, li) не режутся.
func splitInlineAncestors(marker *html.Node) {
	for {
		p := marker.Parent
		if p == nil || !isPlainSpan(p) {
			return
		}
		after := newElement("span")
		after.Attr = append([]html.Attribute(nil), p.Attr...)
		var next *html.Node
		for s := marker.NextSibling; s != nil; s = next {
			next = s.NextSibling
			p.RemoveChild(s)
			after.AppendChild(s)
		}
		p.RemoveChild(marker)
		insertAfter(marker, p)
		if after.FirstChild != nil {
			insertAfter(after, marker)
		}
		if p.FirstChild == nil {
			detach(p)
		}
	}
}

// coveredTextNodes - текстовые ноды строго между маркерами в порядке документа,
// без плейсхолдеров маркеров.
func coveredTextNodes(root, start, end *html.Node) []*html.Node {
	var res []*html.Node
	seen := false
	for n := start; n != nil; n = nextInDocument(n, root) {
		if n == end {
			break
		}
		if n == start {
			seen = true
			continue
		}
		if !seen || n.Type != html.TextNode {
			continue
		}
		if isMarker(n.Parent) {
			continue
		}
		res = append(res, n)
	}
	return res
}

// unwrapRedundantSpans убирает старые span-обертки внутри покрытой области,
// оставляя свежесозданные сегментные span на месте.
func unwrapRedundantSpans(n *html.Node, fresh map[*html.Node]StyleSet) {
	if n.Type != html.ElementNode {
		return
	}
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		unwrapRedundantSpans(c, fresh)
	}
	if !isPlainSpan(n) {
		return
	}
	if t := n.FirstChild; t != nil && t.NextSibling == nil && t.Type == html.TextNode {
		if _, ok := fresh[t]; ok {
			// Свежий сегментный span, не трогаем.
			return
		}
	}
	parent := n.Parent
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}

// expandToBlock строит выделение на все содержимое охватывающего блока якоря.
func expandToBlock(root, anchor *html.Node) (SelectionRange, bool) {
	block := blockAncestor(root, anchor)
	if block == nil {
		block = root
	}
	path, ok := nodePath(root, block)
	if !ok {
		return SelectionRange{}, false
	}
	n := countChildren(block)
	if n == 0 {
		return SelectionRange{}, false
	}
	return SelectionRange{
		StartPath:   path,
		StartOffset: 0,
		EndPath:     path,
		EndOffset:   n,
	}, true
}

// blockAncestor - ближайший блочный предок ноды (p или li) либо nil.
func blockAncestor(root, n *html.Node) *html.Node {
	for p := n; p != nil && p != root; p = p.Parent {
		if isElement(p, "p") || isElement(p, "li") {
			return p
		}
	}
	return nil
}

// applyBlockFormat применяет блочные ключи к ближайшему блочному предку якоря.
// Блочное форматирование привязано к якорю, а не к диапазону: "выровнять эту
// строку" не зависит от объема выделенного текста.
func applyBlockFormat(root, anchor *html.Node, format StyleSet) {
	block := blockAncestor(root, anchor)
	if block == nil {
		block = wrapLine(root, anchor)
		if block == nil {
			return
		}
	}

	if align, ok := format[StyleTextAlign]; ok {
		s := styleSetOf(block)
		s[StyleTextAlign] = align
		applyStyleAttr(block, s)
	}
	if delta, ok := format[StyleIndentLevel]; ok {
		applyIndent(block, delta)
	}
	if listType, ok := format[StyleListType]; ok {
		toggleList(root, block, listType)
	}
}

// wrapLine оборачивает br-ограниченную строку вокруг якоря в новый параграф.
func wrapLine(root, anchor *html.Node) *html.Node {
	top := anchor
	for top.Parent != nil && top.Parent != root {
		top = top.Parent
	}
	if top.Parent != root {
		return nil
	}

	first := top
	for first.PrevSibling != nil && !isElement(first.PrevSibling, "br") && !isBlock(first.PrevSibling) {
		first = first.PrevSibling
	}
	last := top
	for last.NextSibling != nil && !isElement(last.NextSibling, "br") && !isBlock(last.NextSibling) {
		last = last.NextSibling
	}

	p := newElement("p")
	root.InsertBefore(p, first)
	var next *html.Node
	for n := first; n != nil; n = next {
		stop := n == last
		next = n.NextSibling
		root.RemoveChild(n)
		p.AppendChild(n)
		if stop {
			break
		}
	}
	return p
}

// applyIndent сдвигает уровень отступа блока на знаковую дельту, пол - ноль.
func applyIndent(block *html.Node, delta string) {
	d, err := strconv.Atoi(strings.TrimPrefix(delta, "+"))
	if err != nil {
		return
	}
	level := indentLevel(block) + d
	if level < 0 {
		level = 0
	}
	if level > maxIndentLevel {
		level = maxIndentLevel
	}
	setIndentLevel(block, level)
}

func indentLevel(block *html.Node) int {
	for _, cl := range strings.Fields(getAttrValue("class", block.Attr)) {
		if lvl, ok := strings.CutPrefix(cl, indentClassPrefix); ok {
			n, err := strconv.Atoi(lvl)
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func setIndentLevel(block *html.Node, level int) {
	var classes []string
	for _, cl := range strings.Fields(getAttrValue("class", block.Attr)) {
		if !strings.HasPrefix(cl, indentClassPrefix) {
			classes = append(classes, cl)
		}
	}
	if level > 0 {
		classes = append(classes, indentClassPrefix+strconv.Itoa(level))
	}
	if len(classes) == 0 {
		removeAttr(block, "class")
		return
	}
	setAttr(block, "class", strings.Join(classes, " "))
}

// toggleList - идемпотентный переключатель списка: блок внутри ListItem
// разворачивается обратно в параграф, иначе блок оборачивается в список
// из одного элемента.
func toggleList(root, block *html.Node, listType string) {
	if isElement(block, "li") {
		unwrapListItem(root, block)
		return
	}
	if li := blockAncestorList(root, block); li != nil {
		unwrapListItem(root, li)
		return
	}

	listTag := "ul"
	if listType == ListOrdered {
		listTag = "ol"
	}
	list := newElement(listTag)
	li := newElement("li")
	list.AppendChild(li)
	block.Parent.InsertBefore(list, block)
	block.Parent.RemoveChild(block)
	for c := block.FirstChild; c != nil; c = block.FirstChild {
		block.RemoveChild(c)
		li.AppendChild(c)
	}
	// Блочные свойства параграфа переезжают на элемент списка.
	li.Attr = append([]html.Attribute(nil), block.Attr...)
}

func blockAncestorList(root, n *html.Node) *html.Node {
	for p := n; p != nil && p != root; p = p.Parent {
		if isElement(p, "li") {
			return p
		}
	}
	return nil
}

// unwrapListItem выносит элемент списка обратно в параграф, при необходимости
// расщепляя список на две части вокруг него.
func unwrapListItem(root, li *html.Node) {
	list := li.Parent
	if list == nil {
		return
	}

	p := newElement("p")
	p.Attr = append([]html.Attribute(nil), li.Attr...)
	for c := li.FirstChild; c != nil; c = li.FirstChild {
		li.RemoveChild(c)
		p.AppendChild(c)
	}

	switch {
	case li.PrevSibling == nil && li.NextSibling == nil:
		list.Parent.InsertBefore(p, list)
		list.Parent.RemoveChild(list)
	case li.PrevSibling == nil:
		list.Parent.InsertBefore(p, list)
		list.RemoveChild(li)
	case li.NextSibling == nil:
		insertAfter(p, list)
		list.RemoveChild(li)
	default:
		// Элемент в середине - список расщепляется.
		tail := newElement(list.Data)
		tail.Attr = append([]html.Attribute(nil), list.Attr...)
		var next *html.Node
		for s := li.NextSibling; s != nil; s = next {
			next = s.NextSibling
			list.RemoveChild(s)
			tail.AppendChild(s)
		}
		list.RemoveChild(li)
		insertAfter(p, list)
		insertAfter(tail, p)
	}
}
