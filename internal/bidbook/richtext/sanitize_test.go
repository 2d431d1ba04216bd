package richtext

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func sanitizeToMarkup(raw string) string {
	root := NewRoot()
	for _, n := range Sanitize(raw) {
		root.AppendChild(n)
	}
	return Serialize(root)
}

func TestSanitizeStripList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "script removed with content, legacy bold converted",
			raw:  `<script>alert(1)</script><b>hi</b>`,
			want: `<span style="font-weight:bold">hi</span>`,
		},
		{
			name: "style element removed with content",
			raw:  `<style>p{color:red}</style>text`,
			want: "text",
		},
		{
			name: "iframe removed with content",
			raw:  `<iframe src="https://evil.example"></iframe>ok`,
			want: "ok",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeToMarkup(tt.raw); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeUnwrapsUnknownElements(t *testing.T) {
	got := sanitizeToMarkup(`<article><section>keep me</section></article>`)
	if got != "keep me" {
		t.Errorf("got %q, want %q", got, "keep me")
	}
}

func TestSanitizeFlattensBlocks(t *testing.T) {
	got := sanitizeToMarkup(`<div>Hello</div><div>World</div>`)
	if got != "Hello<br/>World" {
		t.Errorf("got %q, want %q", got, "Hello<br/>World")
	}
}

func TestSanitizeLegacyEmphasis(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`<strong>x</strong>`, `<span style="font-weight:bold">x</span>`},
		{`<em>x</em>`, `<span style="font-style:italic">x</span>`},
		{`<u>x</u>`, `<span style="text-decoration:underline">x</span>`},
		{`<s>x</s>`, `<span style="text-decoration:line-through">x</span>`},
		// Инлайн-стиль элемента сливается с эквивалентом тега.
		{`<b style="color:red">x</b>`, `<span style="color:red;font-weight:bold">x</span>`},
	}
	for _, tt := range tests {
		if got := sanitizeToMarkup(tt.raw); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSanitizeVendorSpansUnwrapped(t *testing.T) {
	// Служебные обертки других редакторов: атрибуты срезаны политикой,
	// стилистики не осталось - обертка разворачивается.
	got := sanitizeToMarkup(`<span class="mso-meta" data-foo="1">text</span>`)
	if got != "text" {
		t.Errorf("got %q, want %q", got, "text")
	}
}

func TestSanitizeLinkAndImageAttrs(t *testing.T) {
	got := sanitizeToMarkup(`<a href="https://example.com/x" onclick="боль()" class="c">link</a>`)
	if got != `<a href="https://example.com/x">link</a>` {
		t.Errorf("got %q", got)
	}

	got = sanitizeToMarkup(`<img src="/api/attachments/7/" data-blob-id="7" width="100" onerror="x()"/>`)
	if strings.Contains(got, "width") || strings.Contains(got, "onerror") {
		t.Errorf("disallowed attrs survived: %q", got)
	}
	if !strings.Contains(got, `src="/api/attachments/7/"`) || !strings.Contains(got, `data-blob-id="7"`) {
		t.Errorf("allowed attrs lost: %q", got)
	}
}

func TestSanitizeWhitespace(t *testing.T) {
	// Серии пробелов схлопываются; краевые пробелы внешнего уровня сохраняются.
	got := sanitizeToMarkup(" a  \n\t b ")
	if got != " a b " {
		t.Errorf("got %q, want %q", got, " a b ")
	}

	// Внутри вложенных элементов краевые пробелы подрезаются.
	got = sanitizeToMarkup(`<b>  bold  </b>`)
	if got != `<span style="font-weight:bold">bold</span>` {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeDisallowedStyleProps(t *testing.T) {
	got := sanitizeToMarkup(`<span style="color:red;position:fixed;-webkit-user-select:none">x</span>`)
	if got != `<span style="color:red">x</span>` {
		t.Errorf("got %q", got)
	}
}

// Замыкание allow-list: в выходе встречаются только разрешенные элементы.
func TestSanitizeAllowListClosure(t *testing.T) {
	raw := `<table><tr><td>cell</td></tr></table><video src="v"></video><p onclick="x">p</p><marquee>m</marquee>`
	root := NewRoot()
	for _, n := range Sanitize(raw) {
		root.AppendChild(n)
	}

	allowed := map[string]bool{
		"span": true, "br": true, "ul": true, "ol": true, "li": true,
		"a": true, "img": true, "p": true,
	}
	iterNodes(root, func(n *html.Node) bool {
		if n != root && n.Type == html.ElementNode && !allowed[n.Data] {
			t.Errorf("disallowed element %q in output: %s", n.Data, Serialize(root))
		}
		return false
	})
}

func TestFromPlainText(t *testing.T) {
	root := NewRoot()
	for _, n := range FromPlainText("one\r\ntwo\nthree") {
		root.AppendChild(n)
	}
	if got := Serialize(root); got != "one<br/>two<br/>three" {
		t.Errorf("got %q", got)
	}
}
