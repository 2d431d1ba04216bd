package richtext

import "golang.org/x/net/html"

// SelectionRange описывает выделение в дереве документа. Путь адресует ноду
// последовательностью индексов детей от корня; смещение - руническая позиция
// внутри текстовой ноды либо индекс ребенка внутри элемента.
// Пути инвалидируются любой мутацией дерева, поэтому через мутации выделение
// переносится закладками, а не сохраненными путями.
type SelectionRange struct {
	StartPath   []int
	StartOffset int
	EndPath     []int
	EndOffset   int
	Collapsed   bool
}

// SelectionSurface - поверхность хоста, владеющая живым выделением.
// Движок никогда не читает глобальное состояние браузера напрямую.
type SelectionSurface interface {
	Selection() (SelectionRange, bool)
	SetSelection(SelectionRange)
}

// CollapsedAt возвращает схлопнутое выделение в указанной точке.
func CollapsedAt(path []int, offset int) SelectionRange {
	return SelectionRange{
		StartPath:   path,
		StartOffset: offset,
		EndPath:     path,
		EndOffset:   offset,
		Collapsed:   true,
	}
}

// resolvePath возвращает ноду по пути от корня либо nil.
func resolvePath(root *html.Node, path []int) *html.Node {
	n := root
	for _, i := range path {
		if n == nil || i < 0 {
			return nil
		}
		n = nthChild(n, i)
	}
	return n
}

// nodePath вычисляет путь ноды от корня.
func nodePath(root, n *html.Node) ([]int, bool) {
	if !contains(root, n) {
		return nil, false
	}
	var path []int
	for n != root {
		path = append([]int{childIndex(n)}, path...)
		n = n.Parent
	}
	return path, true
}
