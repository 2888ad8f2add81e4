// Package placestore - типизированный репозиторий поверх документного хранилища.
package placestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/storage"
)

// Store отображает коллекции DocumentStore на доменные типы.
type Store struct {
	docs storage.DocumentStore
}

// New создает репозиторий поверх документного хранилища.
func New(docs storage.DocumentStore) *Store {
	return &Store{docs: docs}
}

// === Place Methods ===

// ListPlaces возвращает все заведения. Документы, которые не удалось
// декодировать, пропускаются: для поиска они все равно невалидны.
func (s *Store) ListPlaces(ctx context.Context) ([]domain.Place, error) {
	docs, err := s.docs.GetAll(ctx, storage.Places)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	places := make([]domain.Place, 0, len(docs))
	for _, d := range docs {
		var p domain.Place
		if err := fromDocument(d, &p); err != nil {
			continue
		}
		places = append(places, p)
	}
	return places, nil
}

func (s *Store) GetPlace(ctx context.Context, id string) (*domain.Place, error) {
	doc, err := s.docs.Get(ctx, storage.Places, id)
	if err != nil {
		return nil, fmt.Errorf("get place %s: %w", id, err)
	}
	var p domain.Place
	if err := fromDocument(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PlacesByIDs загружает заведения пачкой. Отсутствующие id в результат не попадают.
func (s *Store) PlacesByIDs(ctx context.Context, ids []string) (map[string]*domain.Place, error) {
	out := make(map[string]*domain.Place, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		p, err := s.GetPlace(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

// SetPlace создает или заменяет заведение под p.ID.
func (s *Store) SetPlace(ctx context.Context, p domain.Place) error {
	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, storage.Places, p.ID, doc); err != nil {
		return fmt.Errorf("set place %s: %w", p.ID, err)
	}
	return nil
}

// CreatePlace сохраняет заведение, только если p.ID еще свободен.
func (s *Store) CreatePlace(ctx context.Context, p domain.Place) error {
	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	if err := s.docs.Create(ctx, storage.Places, p.ID, doc); err != nil {
		return fmt.Errorf("create place %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) DeletePlace(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, storage.Places, id); err != nil {
		return fmt.Errorf("delete place %s: %w", id, err)
	}
	return nil
}

// === PlaceRequest Methods ===

func (s *Store) CreateRequest(ctx context.Context, r domain.PlaceRequest) error {
	doc, err := toDocument(r)
	if err != nil {
		return err
	}
	if err := s.docs.Create(ctx, storage.PlaceRequests, r.ID, doc); err != nil {
		return fmt.Errorf("create request %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*domain.PlaceRequest, error) {
	doc, err := s.docs.Get(ctx, storage.PlaceRequests, id)
	if err != nil {
		return nil, fmt.Errorf("get request %s: %w", id, err)
	}
	var r domain.PlaceRequest
	if err := fromDocument(doc, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// PendingRequests - очередь заявок, старые первыми.
func (s *Store) PendingRequests(ctx context.Context) ([]domain.PlaceRequest, error) {
	docs, err := s.docs.Query(ctx, storage.PlaceRequests, "status", domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out := make([]domain.PlaceRequest, 0, len(docs))
	for _, d := range docs {
		var r domain.PlaceRequest
		if err := fromDocument(d, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeletePendingRequest удаляет заявку, только если она еще в статусе PENDING.
func (s *Store) DeletePendingRequest(ctx context.Context, id string) error {
	if err := s.docs.DeleteIf(ctx, storage.PlaceRequests, id, "status", domain.StatusPending); err != nil {
		return fmt.Errorf("delete request %s: %w", id, err)
	}
	return nil
}

// === Comment Methods ===

func (s *Store) CreatePendingComment(ctx context.Context, c domain.Comment) error {
	return s.createComment(ctx, storage.CommentsPending, c)
}

// PublishComment копирует комментарий в публичный раздел под тем же id.
// Существующая копия дает storage.ErrAlreadyExists.
func (s *Store) PublishComment(ctx context.Context, c domain.Comment) error {
	return s.createComment(ctx, storage.CommentsPublic, c)
}

func (s *Store) createComment(ctx context.Context, collection string, c domain.Comment) error {
	doc, err := toDocument(c)
	if err != nil {
		return err
	}
	if err := s.docs.Create(ctx, collection, c.ID, doc); err != nil {
		return fmt.Errorf("create comment %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) GetPendingComment(ctx context.Context, id string) (*domain.Comment, error) {
	doc, err := s.docs.Get(ctx, storage.CommentsPending, id)
	if err != nil {
		return nil, fmt.Errorf("get comment %s: %w", id, err)
	}
	var c domain.Comment
	if err := fromDocument(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetPublicComment(ctx context.Context, id string) (*domain.Comment, error) {
	doc, err := s.docs.Get(ctx, storage.CommentsPublic, id)
	if err != nil {
		return nil, fmt.Errorf("get comment %s: %w", id, err)
	}
	var c domain.Comment
	if err := fromDocument(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) PendingComments(ctx context.Context) ([]domain.Comment, error) {
	return s.listComments(ctx, storage.CommentsPending, "status", domain.StatusPending)
}

// PublicComments - одобренные комментарии заведения, старые первыми.
func (s *Store) PublicComments(ctx context.Context, placeID string) ([]domain.Comment, error) {
	comments, err := s.listComments(ctx, storage.CommentsPublic, "placeId", placeID)
	if err != nil {
		return nil, err
	}
	approved := comments[:0]
	for _, c := range comments {
		if c.Status == domain.StatusApproved {
			approved = append(approved, c)
		}
	}
	return approved, nil
}

func (s *Store) listComments(ctx context.Context, collection, field string, value any) ([]domain.Comment, error) {
	docs, err := s.docs.Query(ctx, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	out := make([]domain.Comment, 0, len(docs))
	for _, d := range docs {
		var c domain.Comment
		if err := fromDocument(d, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeletePendingComment удаляет комментарий из очереди, только если он еще PENDING.
func (s *Store) DeletePendingComment(ctx context.Context, id string) error {
	if err := s.docs.DeleteIf(ctx, storage.CommentsPending, id, "status", domain.StatusPending); err != nil {
		return fmt.Errorf("delete comment %s: %w", id, err)
	}
	return nil
}

// === User Methods ===

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	doc, err := s.docs.Get(ctx, storage.Users, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	var u domain.User
	if err := fromDocument(doc, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) SetUser(ctx context.Context, u domain.User) error {
	doc, err := toDocument(u)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, storage.Users, u.ID, doc); err != nil {
		return fmt.Errorf("set user %s: %w", u.ID, err)
	}
	return nil
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role domain.Role) error {
	if err := s.docs.Update(ctx, storage.Users, id, "role", string(role)); err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, storage.Users, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// === Approval Methods ===

func (s *Store) GetApproval(ctx context.Context, requestID string) (*domain.Approval, error) {
	doc, err := s.docs.Get(ctx, storage.Approvals, requestID)
	if err != nil {
		return nil, fmt.Errorf("get approval %s: %w", requestID, err)
	}
	var a domain.Approval
	if err := fromDocument(doc, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ReserveApproval записывает решение по заявке. Решение по заявке
// принимается один раз: следующая попытка получает storage.ErrAlreadyExists.
func (s *Store) ReserveApproval(ctx context.Context, a domain.Approval) error {
	doc, err := toDocument(a)
	if err != nil {
		return err
	}
	if err := s.docs.Create(ctx, storage.Approvals, a.RequestID, doc); err != nil {
		return fmt.Errorf("reserve approval %s: %w", a.RequestID, err)
	}
	return nil
}

func (s *Store) CompleteApproval(ctx context.Context, requestID string) error {
	if err := s.docs.Update(ctx, storage.Approvals, requestID, "completed", true); err != nil {
		return fmt.Errorf("complete approval %s: %w", requestID, err)
	}
	return nil
}

func (s *Store) ReleaseApproval(ctx context.Context, requestID string) error {
	if err := s.docs.Delete(ctx, storage.Approvals, requestID); err != nil {
		return fmt.Errorf("release approval %s: %w", requestID, err)
	}
	return nil
}

// === Comment Review Methods ===

func (s *Store) GetCommentReview(ctx context.Context, commentID string) (*domain.CommentReview, error) {
	doc, err := s.docs.Get(ctx, storage.CommentReviews, commentID)
	if err != nil {
		return nil, fmt.Errorf("get comment review %s: %w", commentID, err)
	}
	var r domain.CommentReview
	if err := fromDocument(doc, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ReserveCommentReview записывает решение по комментарию условной вставкой.
func (s *Store) ReserveCommentReview(ctx context.Context, r domain.CommentReview) error {
	doc, err := toDocument(r)
	if err != nil {
		return err
	}
	if err := s.docs.Create(ctx, storage.CommentReviews, r.CommentID, doc); err != nil {
		return fmt.Errorf("reserve comment review %s: %w", r.CommentID, err)
	}
	return nil
}

func (s *Store) CompleteCommentReview(ctx context.Context, commentID string) error {
	if err := s.docs.Update(ctx, storage.CommentReviews, commentID, "completed", true); err != nil {
		return fmt.Errorf("complete comment review %s: %w", commentID, err)
	}
	return nil
}

func (s *Store) ReleaseCommentReview(ctx context.Context, commentID string) error {
	if err := s.docs.Delete(ctx, storage.CommentReviews, commentID); err != nil {
		return fmt.Errorf("release comment review %s: %w", commentID, err)
	}
	return nil
}
