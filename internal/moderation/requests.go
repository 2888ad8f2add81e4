package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/geo"
	"github.com/UkralStul/barfinder-service/internal/storage"
)

// PlaceRequestDraft - данные новой заявки от пользователя.
type PlaceRequestDraft struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Province     string   `json:"province"`
	Municipality string   `json:"municipality"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Phone        string   `json:"phone,omitempty"`
	OpeningHours string   `json:"openingHours,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
}

// RequestOutcome - результат рассмотрения заявки.
type RequestOutcome struct {
	RequestID string          `json:"requestId"`
	Decision  domain.Decision `json:"decision"`
	Status    domain.Status   `json:"status"`
	// PlaceID - id созданного заведения, только для APPROVE.
	PlaceID string `json:"placeId,omitempty"`
	// Replayed: решение уже было принято раньше, возвращен прежний результат.
	Replayed bool `json:"replayed"`
}

// === Submission ===

// SubmitRequest ставит заявку в очередь модерации. Полный набор полей
// проверяется при одобрении, здесь - только имя и координаты.
func (w *Workflow) SubmitRequest(ctx context.Context, actor string, d PlaceRequestDraft) (*domain.PlaceRequest, error) {
	const op = "submit request"
	if _, err := w.requireUser(ctx, op, actor); err != nil {
		return nil, err
	}

	var errs domain.ValidationErrors
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, domain.FieldError{Field: "name", Reason: "is required"})
	}
	// Без координат заявка стала бы заведением в точке (0, 0).
	if d.Latitude == nil || d.Longitude == nil {
		errs = append(errs, domain.FieldError{Field: "coordinates", Reason: "are required"})
	} else if !(geo.Point{Lat: *d.Latitude, Lon: *d.Longitude}).Valid() {
		errs = append(errs, domain.FieldError{Field: "coordinates", Reason: "must be a valid position"})
	}
	if d.Rating != nil && (*d.Rating < 0 || *d.Rating > 5) {
		errs = append(errs, domain.FieldError{Field: "rating", Reason: "must be between 0 and 5"})
	}
	if len(errs) > 0 {
		return nil, validationError(op, "", errs)
	}

	req := domain.PlaceRequest{
		ID:           w.newID(),
		Name:         d.Name,
		Address:      d.Address,
		Province:     d.Province,
		Municipality: d.Municipality,
		Latitude:     *d.Latitude,
		Longitude:    *d.Longitude,
		Phone:        d.Phone,
		OpeningHours: d.OpeningHours,
		Rating:       d.Rating,
		Status:       domain.StatusPending,
		SubmittedBy:  actor,
		CreatedAt:    w.now(),
	}
	if err := w.store.CreateRequest(ctx, req); err != nil {
		return nil, storeError(op, req.ID, err)
	}
	w.logger.Info().Str("request_id", req.ID).Str("user_id", actor).Msg("place request submitted")
	return &req, nil
}

// PendingRequests - очередь заявок для администратора.
func (w *Workflow) PendingRequests(ctx context.Context, actor string) ([]domain.PlaceRequest, error) {
	const op = "list requests"
	if err := w.access.RequireAdmin(ctx, op, actor); err != nil {
		return nil, err
	}
	reqs, err := w.store.PendingRequests(ctx)
	if err != nil {
		return nil, storeError(op, "", err)
	}
	return reqs, nil
}

// === Review ===

// ReviewRequest одобряет или отклоняет заявку.
//
// Решение сначала записывается в журнал Approvals условной вставкой: из
// конкурирующих APPROVE и REJECT по одной заявке проходит только первый,
// второй получает Conflict. Повтор того же решения возвращает прежний
// результат и доводит прерванный переход до конца.
//
// APPROVE: запись журнала -> заведение под новым id -> удаление заявки при
// status == PENDING -> отметка completed.
// REJECT: запись журнала -> удаление заявки -> отметка completed.
func (w *Workflow) ReviewRequest(ctx context.Context, actor, id string, d domain.Decision) (out *RequestOutcome, err error) {
	const op = "review request"
	defer func() { w.observe(entityRequest, string(d), err) }()

	if err := checkDecision(op, id, d); err != nil {
		return nil, err
	}
	if err := w.access.RequireAdmin(ctx, op, actor); err != nil {
		return nil, err
	}

	rec, err := w.store.GetApproval(ctx, id)
	switch {
	case err == nil:
		return w.resumeDecision(ctx, op, *rec, d)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, storeError(op, id, err)
	}

	req, err := w.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Заявку мог только что рассмотреть другой модератор.
			if rec, getErr := w.store.GetApproval(ctx, id); getErr == nil {
				return w.resumeDecision(ctx, op, *rec, d)
			}
		}
		return nil, storeError(op, id, err)
	}
	if !req.Status.CanTransition(d.Target()) {
		return nil, domain.NewError(domain.KindConflict, op, id, nil)
	}
	if d == domain.DecisionApprove {
		if errs := req.ValidateForApproval(); len(errs) > 0 {
			return nil, validationError(op, id, errs)
		}
	}

	rec = &domain.Approval{
		RequestID:  id,
		Decision:   d,
		ReviewedBy: actor,
		CreatedAt:  w.now(),
	}
	if d == domain.DecisionApprove {
		rec.PlaceID = w.newID()
	}
	if err := w.store.ReserveApproval(ctx, *rec); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Другой модератор успел раньше.
			existing, getErr := w.store.GetApproval(ctx, id)
			if getErr != nil {
				return nil, storeError(op, id, getErr)
			}
			return w.resumeDecision(ctx, op, *existing, d)
		}
		return nil, storeError(op, id, err)
	}

	// Первая запись сделана: отмена вызывающего больше не прерывает переход.
	wctx := context.WithoutCancel(ctx)
	if d == domain.DecisionReject {
		return w.rejectRequest(wctx, op, *rec)
	}
	return w.approveRequest(wctx, op, req, *rec)
}

// resumeDecision обрабатывает заявку, решение по которой уже записано.
// Другое решение - Conflict, то же самое - повтор.
func (w *Workflow) resumeDecision(ctx context.Context, op string, rec domain.Approval, d domain.Decision) (*RequestOutcome, error) {
	if rec.Outcome() != d {
		return nil, domain.NewError(domain.KindConflict, op, rec.RequestID,
			fmt.Errorf("request already decided: %s", rec.Outcome()))
	}
	if d == domain.DecisionReject {
		return w.replayRejection(ctx, op, rec)
	}
	return w.replayApproval(ctx, op, rec)
}

func (w *Workflow) approveRequest(wctx context.Context, op string, req *domain.PlaceRequest, rec domain.Approval) (*RequestOutcome, error) {
	id := rec.RequestID

	// ErrAlreadyExists: конкурентный повтор уже создал заведение под этим id.
	if err := w.store.CreatePlace(wctx, req.ToPlace(rec.PlaceID)); err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
		if relErr := w.store.ReleaseApproval(wctx, id); relErr != nil {
			w.logger.Warn().Err(relErr).Str("request_id", id).Msg("failed to release approval record")
		}
		return nil, domain.NewError(domain.KindStoreUnavailable, op, id, err)
	}

	// Заявку удаляет только владелец записи журнала; ErrNotFound значит,
	// что это уже сделал его же повтор.
	if err := w.store.DeletePendingRequest(wctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, w.partialMutation(entityRequest, op, id, rec.PlaceID, err)
	}
	w.completeApproval(wctx, id)

	w.logger.Info().
		Str("request_id", id).
		Str("place_id", rec.PlaceID).
		Str("admin_id", rec.ReviewedBy).
		Msg("place request approved")
	return &RequestOutcome{RequestID: id, Decision: domain.DecisionApprove, Status: domain.StatusApproved, PlaceID: rec.PlaceID}, nil
}

// replayApproval доводит до конца ранее начатое одобрение и возвращает его результат.
func (w *Workflow) replayApproval(ctx context.Context, op string, a domain.Approval) (*RequestOutcome, error) {
	out := &RequestOutcome{
		RequestID: a.RequestID,
		Decision:  domain.DecisionApprove,
		Status:    domain.StatusApproved,
		PlaceID:   a.PlaceID,
		Replayed:  true,
	}
	if a.Completed {
		return out, nil
	}

	wctx := context.WithoutCancel(ctx)
	req, err := w.store.GetRequest(wctx, a.RequestID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		w.completeApproval(wctx, a.RequestID)
		return out, nil
	case err != nil:
		return nil, storeError(op, a.RequestID, err)
	}

	// Заведение могло не сохраниться в прошлой попытке; Create идемпотентен по id.
	if err := w.store.CreatePlace(wctx, req.ToPlace(a.PlaceID)); err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
		return nil, domain.NewError(domain.KindStoreUnavailable, op, a.RequestID, err)
	}
	if err := w.store.DeletePendingRequest(wctx, a.RequestID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, w.partialMutation(entityRequest, op, a.RequestID, a.PlaceID, err)
	}
	w.completeApproval(wctx, a.RequestID)

	w.logger.Info().
		Str("request_id", a.RequestID).
		Str("place_id", a.PlaceID).
		Msg("interrupted approval completed")
	return out, nil
}

func (w *Workflow) rejectRequest(wctx context.Context, op string, rec domain.Approval) (*RequestOutcome, error) {
	id := rec.RequestID
	if err := w.store.DeletePendingRequest(wctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		// Ничего, кроме записи журнала, не изменено: снимаем ее.
		if relErr := w.store.ReleaseApproval(wctx, id); relErr != nil {
			w.logger.Warn().Err(relErr).Str("request_id", id).Msg("failed to release rejection record")
		}
		return nil, storeError(op, id, err)
	}
	w.completeApproval(wctx, id)

	w.logger.Info().Str("request_id", id).Str("admin_id", rec.ReviewedBy).Msg("place request rejected")
	return &RequestOutcome{RequestID: id, Decision: domain.DecisionReject, Status: domain.StatusRejected}, nil
}

func (w *Workflow) replayRejection(ctx context.Context, op string, rec domain.Approval) (*RequestOutcome, error) {
	out := &RequestOutcome{RequestID: rec.RequestID, Decision: domain.DecisionReject, Status: domain.StatusRejected, Replayed: true}
	if rec.Completed {
		return out, nil
	}
	wctx := context.WithoutCancel(ctx)
	if err := w.store.DeletePendingRequest(wctx, rec.RequestID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, storeError(op, rec.RequestID, err)
	}
	w.completeApproval(wctx, rec.RequestID)
	return out, nil
}

func (w *Workflow) completeApproval(ctx context.Context, requestID string) {
	if err := w.store.CompleteApproval(ctx, requestID); err != nil {
		// Переход выполнен; незакрытая запись только заставит следующий
		// повтор проверить это еще раз.
		w.logger.Warn().Err(err).Str("request_id", requestID).Msg("failed to mark decision completed")
	}
}
