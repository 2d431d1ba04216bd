package richtext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var whitespaceRun = regexp.MustCompile(`[ \t\r\n\f]+`)

// Sanitize превращает внешнюю разметку (буфер обмена текстовых процессоров и
// других редакторов) в чистый фрагмент, готовый к вставке в дерево. Ничего не
// отвергается целиком: неизвестные элементы разворачиваются, непарсибельные
// куски становятся литеральным текстом. Блочные контейнеры уплощаются в
// inline-содержимое с br-разделителями, устаревшие теги выделения
// канонизируются в span, висячий br в хвосте фрагмента убирается.
func Sanitize(raw string) []*html.Node {
	clean := PastePolicy.Sanitize(raw)

	container := NewRoot()
	for _, n := range parseFragment(clean) {
		container.AppendChild(n)
	}

	canonicalize(container)
	collapseWhitespace(container, true)
	flattenBlocks(container)
	dropTrailingBreak(container)

	var frag []*html.Node
	for c := container.FirstChild; c != nil; c = container.FirstChild {
		container.RemoveChild(c)
		frag = append(frag, c)
	}
	return frag
}

// FromPlainText строит фрагмент из plain-текста буфера обмена:
// строки разделяются br.
func FromPlainText(text string) []*html.Node {
	var frag []*html.Node
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if i > 0 {
			frag = append(frag, newElement("br"))
		}
		if line != "" {
			frag = append(frag, newText(line))
		}
	}
	return frag
}

// legacyStyles - соответствие устаревших тегов выделения каноническим ключам стиля.
var legacyStyles = map[string]StyleKey{
	"b":      StyleBold,
	"strong": StyleBold,
	"em":     StyleItalic,
	"i":      StyleItalic,
	"u":      StyleUnderline,
	"s":      StyleStrikethrough,
	"strike": StyleStrikethrough,
}

// canonicalize проходит дерево снизу вверх: устаревшие теги выделения
// становятся span с эквивалентным стилем (с учетом уже имеющегося инлайн-стиля),
// служебные span чужих редакторов без пережившей фильтрацию стилистики
// разворачиваются, у ссылок и изображений остаются только целевые атрибуты.
func canonicalize(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		canonicalize(c)
	}

	if n.Type != html.ElementNode {
		return
	}

	if key, ok := legacyStyles[n.Data]; ok {
		s := styleSetOf(n)
		s[key] = "true"
		span := newElement("span")
		applyStyleAttr(span, s)
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
			span.AppendChild(c)
		}
		n.Parent.InsertBefore(span, n)
		n.Parent.RemoveChild(n)
		return
	}

	switch n.Data {
	case "span":
		if isMarker(n) {
			return
		}
		if len(styleSetOf(n)) == 0 {
			unwrap(n)
		} else {
			keepAttrs(n, "style")
		}
	case "a":
		keepAttrs(n, "href")
	case "img":
		keepAttrs(n, "src", "data-blob-id", "alt")
	}
}

// unwrap заменяет элемент его детьми.
func unwrap(n *html.Node) {
	parent := n.Parent
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}

func keepAttrs(n *html.Node, keys ...string) {
	var kept []html.Attribute
	for _, attr := range n.Attr {
		for _, k := range keys {
			if attr.Key == k {
				kept = append(kept, attr)
				break
			}
		}
	}
	n.Attr = kept
}

// flattenBlocks уплощает div/p в их содержимое с br после каждого блока.
// Списки остаются структурными.
func flattenBlocks(container *html.Node) {
	var next *html.Node
	for c := container.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol" || c.Data == "li") {
			flattenBlocks(c)
			continue
		}
		if !isElement(c, "div") && !isElement(c, "p") {
			continue
		}
		flattenBlocks(c)
		insertAfter(newElement("br"), c)
		unwrap(c)
	}
}

// collapseWhitespace схлопывает пробельные серии в один пробел и подрезает
// краевые пробелы внутри вложенных элементов. На внешнем уровне фрагмента
// краевые пробелы сохраняются, чтобы вставка в середину строки не съедала
// намеренный пограничный пробел.
func collapseWhitespace(n *html.Node, outermost bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isMarker(c) {
			continue
		}
		if c.Type == html.TextNode {
			c.Data = whitespaceRun.ReplaceAllString(c.Data, " ")
			if !outermost {
				if c.PrevSibling == nil {
					c.Data = strings.TrimLeft(c.Data, " ")
				}
				if c.NextSibling == nil {
					c.Data = strings.TrimRight(c.Data, " ")
				}
			}
			continue
		}
		collapseWhitespace(c, false)
	}
}

// dropTrailingBreak убирает br в самом хвосте фрагмента: он дал бы лишнюю
// пустую строку в точке вставки.
func dropTrailingBreak(container *html.Node) {
	last := container.LastChild
	for last != nil && last.Type == html.TextNode && strings.TrimSpace(last.Data) == "" {
		prev := last.PrevSibling
		container.RemoveChild(last)
		last = prev
	}
	if isElement(last, "br") {
		container.RemoveChild(last)
	}
}
