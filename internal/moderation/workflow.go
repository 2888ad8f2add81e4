// Package moderation переводит заявки и комментарии из очереди в публичные данные.
//
// Переходы PENDING -> APPROVED | REJECTED опираются на условные операции
// хранилища (Create и DeleteIf), а не на блокировки в процессе: так два
// модератора или два экземпляра сервиса не опубликуют запись дважды.
package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/barfinder-service/internal/access"
	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/metrics"
	"github.com/UkralStul/barfinder-service/internal/placestore"
	"github.com/UkralStul/barfinder-service/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier получает одобренные комментарии.
type Notifier interface {
	CommentApproved(c domain.Comment)
}

// Workflow - сервис модерации.
type Workflow struct {
	store    *placestore.Store
	access   *access.Control
	notifier Notifier
	logger   zerolog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
	newID    func() string
}

// Option настраивает Workflow.
type Option func(*Workflow)

func WithNotifier(n Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(w *Workflow) { w.metrics = m }
}

// WithClock подменяет часы, используется в тестах.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(gen func() string) Option {
	return func(w *Workflow) { w.newID = gen }
}

// New создает сервис модерации.
func New(store *placestore.Store, ac *access.Control, opts ...Option) *Workflow {
	w := &Workflow{
		store:  store,
		access: ac,
		logger: zerolog.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Entity - вид модерируемой записи, используется в метриках и логах.
const (
	entityRequest = "request"
	entityComment = "comment"
	entityUser    = "user"
	entityPlace   = "place"
)

func (w *Workflow) observe(entity, action string, err error) {
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	w.metrics.ObserveModeration(entity, action, result)
}

// storeError переводит ошибку хранилища в типизированную ошибку операции.
func storeError(op, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return domain.NewError(domain.KindNotFound, op, id, err)
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrAlreadyExists):
		return domain.NewError(domain.KindConflict, op, id, err)
	default:
		return domain.NewError(domain.KindStoreUnavailable, op, id, err)
	}
}

func validationError(op, id string, errs domain.ValidationErrors) error {
	return domain.NewError(domain.KindValidationFailed, op, id, errs)
}

func checkDecision(op, id string, d domain.Decision) error {
	if d.Valid() {
		return nil
	}
	return validationError(op, id, domain.ValidationErrors{{Field: "decision", Reason: "must be APPROVE or REJECT"}})
}

// requireUser: действовать может только существующий пользователь.
func (w *Workflow) requireUser(ctx context.Context, op, actor string) (*domain.User, error) {
	if actor == "" {
		return nil, domain.NewError(domain.KindPermissionDenied, op, actor, nil)
	}
	u, err := w.store.GetUser(ctx, actor)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.NewError(domain.KindPermissionDenied, op, actor, nil)
		}
		return nil, domain.NewError(domain.KindStoreUnavailable, op, actor, err)
	}
	return u, nil
}

// partialMutation фиксирует переход, в котором новая запись создана,
// а исходная осталась в очереди. Повторная вставка не выполняется.
func (w *Workflow) partialMutation(entity, op, id, createdID string, err error) error {
	w.metrics.PartialMutation(entity)
	w.logger.Error().
		Err(err).
		Str("entity", entity).
		Str("id", id).
		Str("created_id", createdID).
		Msg("transition left pending record behind, manual reconciliation required")
	return &domain.Error{Kind: domain.KindPartialMutation, Op: op, ID: id, CreatedID: createdID, Err: err}
}
