// Политика безопасности вставляемой разметки. Все, что приходит из буфера
// обмена, проходит через bluemonday-политику с allow-list элементов, атрибутов
// и стилей; запрещенные элементы разворачиваются с сохранением содержимого,
// скрипты, стили и встраиваемые объекты вырезаются вместе с поддеревом.
package richtext

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// PastePolicy фильтрует чужую разметку до разрешенного подмножества.
// Устаревшие теги выделения (b, em, u, s) пропускаются и далее
// канонизируются в span на этапе Sanitize.
var PastePolicy *bluemonday.Policy = bluemonday.NewPolicy()

// StripTagsPolicy снимает всю разметку, оставляя текст.
var StripTagsPolicy *bluemonday.Policy = bluemonday.StrictPolicy()

func init() {
	colorRegexp := regexp.MustCompile(`^(#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|rgb\((\d+),\s*(\d+),\s*(\d+)\)|[a-z]{3,20})$`)
	sizeRegexp := regexp.MustCompile(`^\d+(\.\d+)?(px|em|rem|pt|%)?$`)
	fontRegexp := regexp.MustCompile(`^[a-zA-Z0-9 ,'"-]{1,100}$`)
	weightRegexp := regexp.MustCompile(`^(bold|bolder|normal|[1-9]00)$`)
	fontStyleRegexp := regexp.MustCompile(`^(italic|normal|oblique)$`)
	decorationRegexp := regexp.MustCompile(`^(underline|line-through|none)( (underline|line-through))*$`)
	boolRegexp := regexp.MustCompile(`^(true|false)$`)
	bookmarkRoleRegexp := regexp.MustCompile(`^(start|end)$`)

	PastePolicy.AllowElements(
		"span", "br", "div", "p",
		"ul", "ol", "li",
		"strong", "b", "em", "i", "u", "s", "strike",
		"a", "img",
	)

	PastePolicy.AllowStyles("color", "background-color").Matching(colorRegexp).Globally()
	PastePolicy.AllowStyles("font-size").Matching(sizeRegexp).Globally()
	PastePolicy.AllowStyles("font-family").Matching(fontRegexp).Globally()
	PastePolicy.AllowStyles("font-weight").Matching(weightRegexp).Globally()
	PastePolicy.AllowStyles("font-style").Matching(fontStyleRegexp).Globally()
	PastePolicy.AllowStyles("text-decoration", "text-decoration-line").Matching(decorationRegexp).Globally()
	PastePolicy.AllowStyles("text-align").Matching(bluemonday.CellAlign).Globally()

	PastePolicy.AllowAttrs("href").OnElements("a")
	PastePolicy.AllowURLSchemes("http", "https", "mailto")
	PastePolicy.RequireParseableURLs(true)
	// Ссылки на собственные вложения хранятся относительными путями.
	PastePolicy.AllowRelativeURLs(true)

	PastePolicy.AllowAttrs("src", "alt", "data-blob-id").OnElements("img")

	PastePolicy.AllowAttrs(attrBookmarkID).OnElements("span")
	PastePolicy.AllowAttrs(attrBookmarkRole).Matching(bookmarkRoleRegexp).OnElements("span")

	PastePolicy.AllowAttrs("data-checked").Matching(boolRegexp).OnElements("li")
	PastePolicy.AllowAttrs("start").Matching(regexp.MustCompile(`^\d+$`)).OnElements("ol")
}
