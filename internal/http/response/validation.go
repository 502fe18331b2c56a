package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/phone"
)

// NewValidator создаёт валидатор с дополнительным тегом uzphone:
// номер после нормализации должен иметь вид 9989XXXXXXXX.
func NewValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "uzphone", func(fl validator.FieldLevel) bool {
		return phone.Valid(phone.Normalize(fl.Field().String()))
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

// FormError — ошибка клиентской проверки формы до отправки на сервер.
type FormError struct {
	Messages []string
}

func (e *FormError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// ValidationError формирует FormError на основе ошибок валидации.
// Каждое нарушение превращается в человеко-читаемый текст.
func ValidationError(errs validator.ValidationErrors) error {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param()))
		case "eqfield":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must match %s", err.Field(), err.Param()))
		case "uzphone":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a phone number like 998901234567", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return &FormError{Messages: errsMsgs}
}

// Validate проверяет структуру и приводит ошибки валидатора к FormError.
func Validate(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		return ValidationError(verrs)
	}
	return err
}
