package richtext

import "golang.org/x/net/html"

// Normalize канонизирует дерево после правки. Идемпотентна, работает на месте,
// снизу вверх: сливает соседние текстовые ноды, сливает соседние span с
// одинаковыми стилями, выбрасывает пустой текст и обезлюдевшие элементы.
// Порядок нод никогда не меняется. Маркеры-закладки неприкосновенны: их
// содержимое не трогается, слияние через границу маркера не происходит.
// Если после чистки корень остался без детей, вставляется пустой параграф -
// дерево никогда не бывает полностью пустым.
func Normalize(root *html.Node) {
	normalizeChildren(root)
	if root.FirstChild == nil {
		root.AppendChild(newElement("p"))
	}
}

func normalizeChildren(n *html.Node) {
	// Сначала вглубь.
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if isMarker(c) || isVoid(c) {
			continue
		}
		normalizeChildren(c)
	}

	// Слияние соседних текстовых нод.
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type != html.TextNode || next == nil || next.Type != html.TextNode {
			continue
		}
		c.Data += next.Data
		n.RemoveChild(next)
		next = c
	}

	// Слияние соседних span с равными стилями. Маркер между span разрывает
	// соседство сам по себе и чинить тут нечего.
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if !isPlainSpan(c) || next == nil || !isPlainSpan(next) {
			continue
		}
		if !styleSetOf(c).Equal(styleSetOf(next)) {
			continue
		}
		for gc := next.FirstChild; gc != nil; gc = next.FirstChild {
			next.RemoveChild(gc)
			c.AppendChild(gc)
		}
		n.RemoveChild(next)
		normalizeChildren(c)
		next = c
	}

	// Чистка вырожденных нод.
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		switch {
		case c.Type == html.TextNode && c.Data == "":
			n.RemoveChild(c)
		case c.Type == html.ElementNode && c.FirstChild == nil && !isVoid(c) && !isMarker(c):
			n.RemoveChild(c)
		}
	}
}
