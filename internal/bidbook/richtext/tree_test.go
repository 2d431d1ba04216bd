package richtext

import (
	"testing"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"plain text", "Hello World"},
		{"styled span", `<span style="color:red">Hello</span> World`},
		{"break", "Hello<br/>World"},
		{"list", "<ul><li>one</li><li>two</li></ul>"},
		{"link", `<a href="https://example.com/doc">doc</a>`},
		{"image", `<img src="/api/attachments/42/" data-blob-id="42"/>`},
		{"nested", `<p style="text-align:center"><span style="font-weight:bold">x</span></p>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := Serialize(Parse(tt.markup))
			twice := Serialize(Parse(once))
			if once != twice {
				t.Errorf("round trip not stable:\n first: %q\nsecond: %q", once, twice)
			}
		})
	}
}

func TestParseNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"<<<>",
		"<span",
		"</div></div>",
		"<b><i>unclosed",
	}
	for _, input := range inputs {
		root := Parse(input)
		if root == nil {
			t.Fatalf("Parse(%q) returned nil root", input)
		}
		// Повторный проход не должен менять результат.
		once := Serialize(root)
		if twice := Serialize(Parse(once)); once != twice {
			t.Errorf("Parse(%q) unstable: %q != %q", input, once, twice)
		}
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		markup string
		want   string
	}{
		{"Hello<br/>World", "Hello\nWorld"},
		{`<span style="color:red">1NT</span> opening`, "1NT opening"},
		{"<ul><li>pass</li><li>double</li></ul>", "pass\ndouble"},
		{`x<img src="/a" data-blob-id="1"/>y`, "xy"},
	}
	for _, tt := range tests {
		if got := PlainText(Parse(tt.markup)); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.markup, got, tt.want)
		}
	}
}

func TestSplitTextNode(t *testing.T) {
	root := Parse("Hello")
	text := root.FirstChild
	rest := splitTextNode(text, 2)
	if text.Data != "He" {
		t.Errorf("left half = %q, want He", text.Data)
	}
	if rest == nil || rest.Data != "llo" {
		t.Fatalf("right half = %v, want llo", rest)
	}
	if countChildren(root) != 2 {
		t.Errorf("children = %d, want 2", countChildren(root))
	}

	// Разрез на границе не создает пустых нод.
	if got := splitTextNode(text, 0); got != text {
		t.Error("split at 0 must return the node itself")
	}
	if got := splitTextNode(rest, 3); got != nil {
		t.Error("split at end must return the next sibling")
	}
}
