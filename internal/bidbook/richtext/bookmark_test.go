package richtext

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestSaveRestoreCollapsed(t *testing.T) {
	root := Parse("Hello World")
	sel := CollapsedAt([]int{0}, 5)

	bm := SaveSelection(root, sel)
	if bm == nil {
		t.Fatal("SaveSelection returned nil for a valid selection")
	}
	if !strings.Contains(Serialize(root), attrBookmarkID) {
		t.Fatal("marker not inserted into the tree")
	}

	restored, ok := RestoreSelection(root, bm)
	if !ok {
		t.Fatal("RestoreSelection failed")
	}
	if restored.Collapsed != true {
		t.Error("restored selection must stay collapsed")
	}
	if strings.Contains(Serialize(root), attrBookmarkID) {
		t.Errorf("marker leaked into the tree: %s", Serialize(root))
	}
	if strings.Contains(Serialize(root), zeroWidthSpace) {
		t.Error("placeholder leaked into the tree")
	}
}

// Выделение должно пережить структурную перестройку между save и restore.
func TestBookmarkSurvivesMutation(t *testing.T) {
	root := Parse(`<span style="color:red">Hello</span> World`)
	// "llo Wor": от (span>text, 2) до (text " World", 4).
	sel := SelectionRange{
		StartPath:   []int{0, 0},
		StartOffset: 2,
		EndPath:     []int{1},
		EndOffset:   4,
	}

	bm := SaveSelection(root, sel)
	if bm == nil {
		t.Fatal("SaveSelection failed")
	}

	// Мутация: в начало документа вставляется новый элемент.
	root.InsertBefore(newText("> "), root.FirstChild)

	restored, ok := RestoreSelection(root, bm)
	if !ok {
		t.Fatal("RestoreSelection failed after mutation")
	}
	if restored.Collapsed {
		t.Error("range selection restored as collapsed")
	}
	if strings.Contains(Serialize(root), attrBookmarkID) {
		t.Error("markers leaked after restore")
	}
}

func TestSaveSelectionOutsideRoot(t *testing.T) {
	root := Parse("Hello")
	if bm := SaveSelection(root, CollapsedAt([]int{5, 2}, 0)); bm != nil {
		t.Error("SaveSelection must return nil for unresolvable path")
	}
	if strings.Contains(Serialize(root), attrBookmarkID) {
		t.Error("failed save must not leave markers behind")
	}
}

func TestRestoreMissingMarker(t *testing.T) {
	root := Parse("Hello World")
	sel := SelectionRange{
		StartPath: []int{0}, StartOffset: 0,
		EndPath: []int{0}, EndOffset: 5,
	}
	bm := SaveSelection(root, sel)
	if bm == nil {
		t.Fatal("SaveSelection failed")
	}

	// Поддерево с маркером начала уничтожается, как это сделал бы Normalizer.
	start := findMarker(root, bm.StartID)
	detach(start)

	if _, ok := RestoreSelection(root, bm); ok {
		t.Error("RestoreSelection must fail when a marker is missing")
	}
	// Даже при провале второй маркер обязан быть снят.
	if strings.Contains(Serialize(root), attrBookmarkID) {
		t.Errorf("orphan marker left in tree: %s", Serialize(root))
	}
}

// Вставка маркера внутрь пустого элемента запрещена - точка сдвигается к соседу.
func TestMarkerNotInsideVoidElements(t *testing.T) {
	root := Parse(`a<img src="/x" data-blob-id="1"/>b`)
	sel := CollapsedAt([]int{1}, 0) // путь указывает на img

	bm := SaveSelection(root, sel)
	if bm == nil {
		t.Fatal("SaveSelection failed")
	}
	m := findMarker(root, bm.StartID)
	if m == nil {
		t.Fatal("marker not found")
	}
	if isElement(m.Parent, "img") || isElement(m.Parent, "br") {
		t.Error("marker must not be inserted inside a void element")
	}
	RestoreSelection(root, bm)
}

// Порядок вставки: сначала конец, потом начало, чтобы разбиение текста под
// начальной границей не сместило конечную.
func TestRangeWithinOneTextNode(t *testing.T) {
	root := Parse("Hello World")
	sel := SelectionRange{
		StartPath: []int{0}, StartOffset: 2,
		EndPath: []int{0}, EndOffset: 7,
	}
	bm := SaveSelection(root, sel)
	if bm == nil {
		t.Fatal("SaveSelection failed")
	}

	// Между маркерами должен лежать ровно текст "llo W".
	start := findMarker(root, bm.StartID)
	end := findMarker(root, bm.EndID)
	var got string
	for n := start.NextSibling; n != nil && n != end; n = n.NextSibling {
		if n.Type == html.TextNode {
			got += n.Data
		}
	}
	if got != "llo W" {
		t.Errorf("text between markers = %q, want %q", got, "llo W")
	}
	RestoreSelection(root, bm)
}

// Пути восстановленного выделения обязаны разрешаться в дереве уже без
// маркеров: маркер - тоже ребенок своего родителя, и пока он стоит в дереве,
// он сдвигает индексы пути для всего, что правее него.
func TestRestoredPathsResolveAfterCleanup(t *testing.T) {
	root := Parse(`ab<span style="color:red">cd</span>`)
	// "b" + "c": от (text "ab", 1) до (span>text, 1).
	sel := SelectionRange{
		StartPath:   []int{0},
		StartOffset: 1,
		EndPath:     []int{1, 0},
		EndOffset:   1,
	}

	bm := SaveSelection(root, sel)
	if bm == nil {
		t.Fatal("SaveSelection failed")
	}
	restored, ok := RestoreSelection(root, bm)
	if !ok {
		t.Fatal("RestoreSelection failed")
	}

	startNode := resolvePath(root, restored.StartPath)
	if startNode == nil {
		t.Fatalf("StartPath %v does not resolve in %q", restored.StartPath, Serialize(root))
	}
	endNode := resolvePath(root, restored.EndPath)
	if endNode == nil {
		t.Fatalf("EndPath %v does not resolve in %q", restored.EndPath, Serialize(root))
	}
	if !isElement(endNode, "span") {
		t.Errorf("EndPath %v resolves to %q, want the span", restored.EndPath, endNode.Data)
	}
	if c := nthChild(startNode, restored.StartOffset); c == nil || c.Type != html.TextNode || c.Data != "b" {
		t.Errorf("StartOffset does not point at the split-off %q", "b")
	}
	if c := nthChild(endNode, restored.EndOffset); c == nil || c.Data != "d" {
		t.Error("EndOffset does not point between the split halves of the span text")
	}
}
