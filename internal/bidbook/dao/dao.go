// DAO (Data Access Object) - предоставляет методы для взаимодействия с базой данных.
// Содержит модели таблиц торговых систем, их ячеек и файловых вложений.
//
// Основные возможности:
//   - Работа с таблицами: создание, получение по slug, удаление.
//   - Работа с ячейками: чтение и запись канонизированной разметки.
//   - Канонизация содержимого ячейки при сохранении: санитизация, нормализация,
//     сериализация и минификация разметки, плюс плоский текст для поиска.
//   - Генерация UUID.
package dao

import (
	"log/slog"
	"regexp"
	"slices"

	"github.com/gofrs/uuid"
	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"

	"github.com/bidbook/bidbook.go/internal/bidbook/richtext"
)

var minifier *minify.M = minify.New()

func init() {
	// Канонический вид разметки не должен плыть при минификации: кавычки,
	// пробелы и закрывающие теги сохраняются, вычищаются только комментарии
	// и прочий мусор.
	minifier.Add("text/html", &minhtml.Minifier{
		KeepQuotes:     true,
		KeepEndTags:    true,
		KeepWhitespace: true,
	})
}

// GenID генерирует уникальный идентификатор в формате UUID.
// Не принимает параметров и возвращает строку, представляющую собой UUID.
func GenID() string {
	u2, _ := uuid.NewV4()
	return u2.String()
}

// GenUUID генерирует уникальный идентификатор в формате UUID. Не принимает параметров и возвращает UUID.
//
// Возвращает:
//   - uuid.UUID: UUID, представляющий собой уникальный идентификатор.
func GenUUID() uuid.UUID {
	u2, _ := uuid.NewV4()
	return u2
}

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// CheckTableSlug проверяет slug таблицы на формат и зарезервированные пути.
func CheckTableSlug(slug string) bool {
	if !slugRegex.MatchString(slug) || len(slug) > 48 {
		return false
	}
	return !slices.Contains([]string{
		"api",
		"metrics",
		"assets",
		"error",
		"404",
		"undefined",
		"not-found",
	}, slug)
}

// CanonicalizeContent приводит сырую разметку к каноническому виду движка и
// возвращает пару: минифицированную каноническую разметку и плоский текст.
func CanonicalizeContent(raw string) (markup string, plain string) {
	root := richtext.NewRoot()
	for _, n := range richtext.Sanitize(raw) {
		root.AppendChild(n)
	}
	richtext.Normalize(root)

	markup = richtext.Serialize(root)
	if min, err := minifier.String("text/html", markup); err == nil {
		markup = min
	} else {
		slog.Warn("minify cell markup", "err", err)
	}
	return markup, richtext.PlainText(root)
}
