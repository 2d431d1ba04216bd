// Пакет содержит определения ошибок, используемых в приложении bidbook для обработки ситуаций, возникающих при работе с таблицами торговых систем, ячейками, вложениями и хранилищем. Каждая ошибка имеет код, статус HTTP и описание, что позволяет удобно обрабатывать исключения и предоставлять информативные сообщения пользователю. Также включает в себя helper-функцию для форматирования сообщений об ошибках.
//
// Основные возможности:
//   - Определение типов ошибок, связанных с таблицами, ячейками, разметкой и вложениями.
//   - Предоставление кодов ошибок, соответствующих кодам HTTP статусов.
//   - Включение сообщений об ошибках для удобной обработки и отображения пользователю.
//   - Функция для форматирования сообщений об ошибках с использованием аргументов.
package apierrors

import (
	"fmt"
	"net/http"
	"strings"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

const AttachmentMaxSizeMB = 20

var (
	// 1*** - common errors
	ErrGeneric     = DefinedError{Code: 1001, StatusCode: http.StatusInternalServerError, Err: "internal server error", RuErr: "Внутренняя ошибка сервера"}
	ErrBadRequest  = DefinedError{Code: 1002, StatusCode: http.StatusBadRequest, Err: "bad request", RuErr: "Некорректный запрос"}
	ErrValidation  = DefinedError{Code: 1003, StatusCode: http.StatusBadRequest, Err: "validation failed: %s", RuErr: "Ошибка валидации: %s"}
	ErrInvalidUUID = DefinedError{Code: 1004, StatusCode: http.StatusBadRequest, Err: "invalid uuid", RuErr: "Некорректный идентификатор"}

	// 2*** - table errors
	ErrTableNotFound     = DefinedError{Code: 2001, StatusCode: http.StatusNotFound, Err: "bidding table not found", RuErr: "Таблица торговой системы не найдена"}
	ErrTableSlugConflict = DefinedError{Code: 2002, StatusCode: http.StatusConflict, Err: "table with that slug already exists", RuErr: "Таблица с таким идентификатором уже существует"}
	ErrForbiddenSlug     = DefinedError{Code: 2003, StatusCode: http.StatusBadRequest, Err: "forbidden slug", RuErr: "Идентификатор содержит недопустимые символы"}
	ErrTableNameRequired = DefinedError{Code: 2004, StatusCode: http.StatusBadRequest, Err: "table must have a name", RuErr: "Поле Имя таблицы не может быть пустым"}
	ErrTableGridTooLarge = DefinedError{Code: 2005, StatusCode: http.StatusBadRequest, Err: "table grid dimensions exceed limit", RuErr: "Размерность таблицы превышает допустимую"}

	// 3*** - cell errors
	ErrCellNotFound    = DefinedError{Code: 3001, StatusCode: http.StatusNotFound, Err: "table cell not found", RuErr: "Ячейка таблицы не найдена"}
	ErrCellOutsideGrid = DefinedError{Code: 3002, StatusCode: http.StatusBadRequest, Err: "cell coordinates outside table grid", RuErr: "Координаты ячейки выходят за пределы таблицы"}
	ErrCellConflict    = DefinedError{Code: 3003, StatusCode: http.StatusConflict, Err: "cell already exists at this position", RuErr: "Ячейка с такими координатами уже существует"}
	ErrMarkupTooLarge  = DefinedError{Code: 3004, StatusCode: http.StatusBadRequest, Err: "cell markup exceeds size limit", RuErr: "Размер содержимого ячейки превышает допустимый"}

	// 4*** - attachment errors
	ErrAttachmentNotFound     = DefinedError{Code: 4001, StatusCode: http.StatusNotFound, Err: "attachment not found", RuErr: "Вложение не найдено"}
	ErrAttachmentTooLarge     = DefinedError{Code: 4002, StatusCode: http.StatusRequestEntityTooLarge, Err: fmt.Sprintf("attachment size limit is %dMB", AttachmentMaxSizeMB), RuErr: fmt.Sprintf("Размер вложения превышает %dМБ", AttachmentMaxSizeMB)}
	ErrAttachmentContentType  = DefinedError{Code: 4003, StatusCode: http.StatusBadRequest, Err: "unsupported attachment content type", RuErr: "Неподдерживаемый тип вложения"}
	ErrAttachmentUploadFailed = DefinedError{Code: 4004, StatusCode: http.StatusInternalServerError, Err: "failed to upload attachment", RuErr: "Не удалось загрузить вложение"}
)

func (e DefinedError) WithFormattedMessage(args ...interface{}) DefinedError {
	if len(args) > 0 {
		e.Err = fmt.Sprintf(e.Err, args...)
		e.RuErr = fmt.Sprintf(e.RuErr, args...)
	} else {
		e.Err = strings.Replace(e.Err, "%s", "", -1)
		e.RuErr = strings.Replace(e.RuErr, "%s", "", -1)
	}
	return e
}
