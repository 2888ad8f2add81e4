package domain

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует ошибки, которые возвращает слой модерации.
type ErrorKind string

const (
	KindStoreUnavailable          ErrorKind = "StoreUnavailable"
	KindValidationFailed          ErrorKind = "ValidationFailed"
	KindNotFound                  ErrorKind = "NotFound"
	KindPermissionDenied          ErrorKind = "PermissionDenied"
	KindSelfModificationForbidden ErrorKind = "SelfModificationForbidden"
	KindPartialMutation           ErrorKind = "PartialMutation"
	KindConflict                  ErrorKind = "Conflict"
)

// Сентинелы для errors.Is: err из любого слоя сравнивается с ними по виду.
var (
	ErrStoreUnavailable          = &Error{Kind: KindStoreUnavailable}
	ErrValidationFailed          = &Error{Kind: KindValidationFailed}
	ErrNotFound                  = &Error{Kind: KindNotFound}
	ErrPermissionDenied          = &Error{Kind: KindPermissionDenied}
	ErrSelfModificationForbidden = &Error{Kind: KindSelfModificationForbidden}
	ErrPartialMutation           = &Error{Kind: KindPartialMutation}
	ErrConflict                  = &Error{Kind: KindConflict}
)

// Error - типизированная ошибка операции.
type Error struct {
	Kind ErrorKind
	Op   string
	ID   string
	// CreatedID заполняется для PartialMutation: запись, которая уже создана
	// и требует ручной сверки.
	CreatedID string
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.ID != "" {
		msg += fmt.Sprintf(" (id=%s)", e.ID)
	}
	if e.CreatedID != "" {
		msg += fmt.Sprintf(" (created=%s)", e.CreatedID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает ошибки по виду, чтобы errors.Is(err, ErrNotFound) работал
// для любой ошибки этого вида.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError создает ошибку заданного вида.
func NewError(kind ErrorKind, op, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: err}
}

// KindOf возвращает вид ошибки или пустую строку, если это не *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldError описывает нарушенное правило валидации.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationErrors - все нарушения, найденные в записи.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	msg := "invalid fields:"
	for i, f := range v {
		if i > 0 {
			msg += ";"
		}
		msg += " " + f.Field + " " + f.Reason
	}
	return msg
}
