package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/storage"
)

// CommentOutcome - результат рассмотрения комментария.
type CommentOutcome struct {
	CommentID string          `json:"commentId"`
	Decision  domain.Decision `json:"decision"`
	Status    domain.Status   `json:"status"`
	Replayed  bool            `json:"replayed"`
}

// SubmitComment ставит комментарий к существующему заведению в очередь модерации.
func (w *Workflow) SubmitComment(ctx context.Context, actor, placeID, text string, rating *int) (*domain.Comment, error) {
	const op = "submit comment"
	if _, err := w.requireUser(ctx, op, actor); err != nil {
		return nil, err
	}
	if errs := domain.ValidateComment(text, rating); len(errs) > 0 {
		return nil, validationError(op, "", errs)
	}
	if _, err := w.store.GetPlace(ctx, placeID); err != nil {
		return nil, storeError(op, placeID, err)
	}

	c := domain.Comment{
		ID:        w.newID(),
		Text:      text,
		AuthorID:  actor,
		PlaceID:   placeID,
		Status:    domain.StatusPending,
		CreatedAt: w.now(),
		Rating:    rating,
	}
	if err := w.store.CreatePendingComment(ctx, c); err != nil {
		return nil, storeError(op, c.ID, err)
	}
	w.logger.Info().Str("comment_id", c.ID).Str("place_id", placeID).Msg("comment submitted")
	return &c, nil
}

// PendingComments - очередь комментариев для администратора.
func (w *Workflow) PendingComments(ctx context.Context, actor string) ([]domain.Comment, error) {
	const op = "list comments"
	if err := w.access.RequireAdmin(ctx, op, actor); err != nil {
		return nil, err
	}
	comments, err := w.store.PendingComments(ctx)
	if err != nil {
		return nil, storeError(op, "", err)
	}
	return comments, nil
}

// PublicComments - одобренные комментарии заведения, доступны всем.
func (w *Workflow) PublicComments(ctx context.Context, placeID string) ([]domain.Comment, error) {
	comments, err := w.store.PublicComments(ctx, placeID)
	if err != nil {
		return nil, storeError("list public comments", placeID, err)
	}
	return comments, nil
}

// ReviewComment одобряет или отклоняет комментарий.
// Решение фиксируется в журнале CommentReviews условной вставкой, так что
// APPROVE и REJECT одного комментария взаимоисключающие. APPROVE копирует
// комментарий в публичный раздел под тем же id, затем удаляет из очереди.
func (w *Workflow) ReviewComment(ctx context.Context, actor, id string, d domain.Decision) (out *CommentOutcome, err error) {
	const op = "review comment"
	defer func() { w.observe(entityComment, string(d), err) }()

	if err := checkDecision(op, id, d); err != nil {
		return nil, err
	}
	if err := w.access.RequireAdmin(ctx, op, actor); err != nil {
		return nil, err
	}

	review, err := w.store.GetCommentReview(ctx, id)
	switch {
	case err == nil:
		return w.resumeCommentReview(ctx, op, *review, d)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, storeError(op, id, err)
	}

	c, err := w.store.GetPendingComment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if review, getErr := w.store.GetCommentReview(ctx, id); getErr == nil {
				return w.resumeCommentReview(ctx, op, *review, d)
			}
			if d == domain.DecisionApprove {
				return w.replayCommentApproval(ctx, op, id)
			}
		}
		return nil, storeError(op, id, err)
	}
	if !c.Status.CanTransition(d.Target()) {
		return nil, domain.NewError(domain.KindConflict, op, id, nil)
	}

	review = &domain.CommentReview{CommentID: id, Decision: d, ReviewedBy: actor, CreatedAt: w.now()}
	if err := w.store.ReserveCommentReview(ctx, *review); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			existing, getErr := w.store.GetCommentReview(ctx, id)
			if getErr != nil {
				return nil, storeError(op, id, getErr)
			}
			return w.resumeCommentReview(ctx, op, *existing, d)
		}
		return nil, storeError(op, id, err)
	}

	wctx := context.WithoutCancel(ctx)
	if d == domain.DecisionReject {
		if err := w.store.DeletePendingComment(wctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			w.releaseCommentReview(wctx, id)
			return nil, storeError(op, id, err)
		}
		w.completeCommentReview(wctx, id)
		w.logger.Info().Str("comment_id", id).Str("admin_id", actor).Msg("comment rejected")
		return &CommentOutcome{CommentID: id, Decision: d, Status: domain.StatusRejected}, nil
	}

	replayed, err := w.publishComment(wctx, op, *c)
	if err != nil {
		w.releaseCommentReview(wctx, id)
		return nil, err
	}
	if err := w.store.DeletePendingComment(wctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, w.partialMutation(entityComment, op, id, id, err)
	}
	w.completeCommentReview(wctx, id)

	w.logger.Info().Str("comment_id", id).Str("admin_id", actor).Bool("replayed", replayed).Msg("comment approved")
	return &CommentOutcome{CommentID: id, Decision: d, Status: domain.StatusApproved, Replayed: replayed}, nil
}

// publishComment создает публичную копию и оповещает подписчиков.
// replayed=true: копия уже была, оповещение тогда не повторяется.
func (w *Workflow) publishComment(ctx context.Context, op string, c domain.Comment) (replayed bool, err error) {
	public := c
	public.Status = domain.StatusApproved
	if err := w.store.PublishComment(ctx, public); err != nil {
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return false, storeError(op, c.ID, err)
		}
		return true, nil
	}
	if w.notifier != nil {
		w.notifier.CommentApproved(public)
	}
	return false, nil
}

// resumeCommentReview: решение уже записано. Другое решение - Conflict,
// то же - повтор с доведением прерванного перехода.
func (w *Workflow) resumeCommentReview(ctx context.Context, op string, r domain.CommentReview, d domain.Decision) (*CommentOutcome, error) {
	if r.Decision != d {
		return nil, domain.NewError(domain.KindConflict, op, r.CommentID,
			fmt.Errorf("comment already decided: %s", r.Decision))
	}
	out := &CommentOutcome{CommentID: r.CommentID, Decision: d, Status: d.Target(), Replayed: true}
	if r.Completed {
		return out, nil
	}

	wctx := context.WithoutCancel(ctx)
	c, err := w.store.GetPendingComment(wctx, r.CommentID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		w.completeCommentReview(wctx, r.CommentID)
		return out, nil
	case err != nil:
		return nil, storeError(op, r.CommentID, err)
	}

	if d == domain.DecisionApprove {
		if _, err := w.publishComment(wctx, op, *c); err != nil {
			return nil, err
		}
	}
	if err := w.store.DeletePendingComment(wctx, r.CommentID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		if d == domain.DecisionApprove {
			return nil, w.partialMutation(entityComment, op, r.CommentID, r.CommentID, err)
		}
		return nil, storeError(op, r.CommentID, err)
	}
	w.completeCommentReview(wctx, r.CommentID)
	return out, nil
}

// replayCommentApproval: ни исходника, ни записи журнала нет, но публичная
// копия может существовать после одобрения без журнала.
func (w *Workflow) replayCommentApproval(ctx context.Context, op, id string) (*CommentOutcome, error) {
	if _, err := w.store.GetPublicComment(ctx, id); err != nil {
		return nil, storeError(op, id, err)
	}
	return &CommentOutcome{CommentID: id, Decision: domain.DecisionApprove, Status: domain.StatusApproved, Replayed: true}, nil
}

func (w *Workflow) completeCommentReview(ctx context.Context, id string) {
	if err := w.store.CompleteCommentReview(ctx, id); err != nil {
		w.logger.Warn().Err(err).Str("comment_id", id).Msg("failed to mark comment review completed")
	}
}

func (w *Workflow) releaseCommentReview(ctx context.Context, id string) {
	if err := w.store.ReleaseCommentReview(ctx, id); err != nil {
		w.logger.Warn().Err(err).Str("comment_id", id).Msg("failed to release comment review record")
	}
}
