package storage

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// Коллекции документного хранилища.
const (
	Places          = "Places"
	PlaceRequests   = "PlaceRequests"
	CommentsPending = "CommentsPending"
	CommentsPublic  = "CommentsPublic"
	Users           = "Users"
	Approvals       = "Approvals"
	CommentReviews  = "CommentReviews"
)

// Collections - все коллекции, которые использует сервис.
var Collections = []string{Places, PlaceRequests, CommentsPending, CommentsPublic, Users, Approvals, CommentReviews}

// IDField - поле документа, в которое хранилище кладет идентификатор при чтении.
const IDField = "id"

var (
	// ErrNotFound - документа с таким id нет в коллекции.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists - условная вставка наткнулась на существующий id.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrConflict - условное удаление не выполнено: поле не совпало с ожидаемым.
	ErrConflict = errors.New("document changed concurrently")
)

// Document - содержимое документа. Значения - результат JSON-декодирования:
// строки, float64, bool, nil, вложенные map/slice.
type Document map[string]any

// Clone возвращает поверхностную копию документа.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// DocumentStore определяет контракт документного хранилища.
// Все реализации обязаны поддерживать условные операции Create и DeleteIf:
// на них держится однократность одобрения заявок.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	GetAll(ctx context.Context, collection string) ([]Document, error)
	// Query возвращает документы, у которых field равно value.
	Query(ctx context.Context, collection, field string, value any) ([]Document, error)

	// Add сохраняет документ под новым id, выданным хранилищем.
	Add(ctx context.Context, collection string, doc Document) (string, error)
	// Set создает или полностью заменяет документ.
	Set(ctx context.Context, collection, id string, doc Document) error
	// Create сохраняет документ, только если id свободен, иначе ErrAlreadyExists.
	Create(ctx context.Context, collection, id string, doc Document) error
	// Update меняет одно поле существующего документа.
	Update(ctx context.Context, collection, id, field string, value any) error

	Delete(ctx context.Context, collection, id string) error
	// DeleteIf удаляет документ, только если field равно expected.
	// ErrNotFound - документа нет, ErrConflict - поле не совпало.
	DeleteIf(ctx context.Context, collection, id, field string, expected any) error
}

// Matches сравнивает значение поля документа с ожидаемым.
// Числа после JSON-декодирования - float64, поэтому сравнение идет по
// текстовому представлению.
func Matches(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

// WithID возвращает копию документа с проставленным идентификатором.
func WithID(doc Document, id string) Document {
	out := doc.Clone()
	if out == nil {
		out = Document{}
	}
	out[IDField] = id
	return out
}
