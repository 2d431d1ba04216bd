// Пакет для валидации данных запросов bidbook. Содержит валидаторы для полей таблиц торговых систем, таких как имя таблицы и slug. Использует библиотеку go-playground/validator для выполнения проверок.
//
// Основные возможности:
//   - Валидация полей данных с использованием предопределенных валидаторов.
//   - Использование регулярных выражений для проверки формата данных.
package bidbook

import (
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator"

	"github.com/bidbook/bidbook.go/internal/bidbook/dao"
)

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	if err := v.RegisterValidation("tableName", tableNameValidator); err != nil {
		return nil
	}
	if err := v.RegisterValidation("slug", slugValidator); err != nil {
		return nil
	}
	return &RequestValidator{v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		_, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		return err
	}
	return nil
}

var tableNameRegex = regexp.MustCompile(`^[0-9a-zA-Zа-яА-ЯёЁ][0-9a-zA-Zа-яА-ЯёЁ ':+/\\_.-]*$`)

func tableNameValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	lenStr := utf8.RuneCountInString(value)
	if !tableNameRegex.MatchString(value) {
		return false
	}
	return lenStr >= 1 && lenStr <= 150
}

func slugValidator(fl validator.FieldLevel) bool {
	return dao.CheckTableSlug(fl.Field().String())
}
