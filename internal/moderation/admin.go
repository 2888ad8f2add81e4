package moderation

import (
	"context"

	"github.com/UkralStul/barfinder-service/internal/access"
	"github.com/UkralStul/barfinder-service/internal/domain"
)

// === User Methods ===

// SetUserRole меняет роль пользователя. Администратор не может понизить сам себя.
func (w *Workflow) SetUserRole(ctx context.Context, actor, target string, role domain.Role) (err error) {
	const op = "set user role"
	defer func() { w.observe(entityUser, "set_role", err) }()

	if !role.Valid() {
		return validationError(op, target, domain.ValidationErrors{{Field: "role", Reason: "must be user or admin"}})
	}
	if err := w.access.RequireAdmin(ctx, op, actor); err != nil {
		return err
	}
	if role != domain.RoleAdmin {
		if err := access.GuardSelf(op, actor, target); err != nil {
			return err
		}
	}
	if err := w.store.UpdateUserRole(ctx, target, role); err != nil {
		return storeError(op, target, err)
	}
	w.logger.Info().Str("user_id", target).Str("role", string(role)).Str("admin_id", actor).Msg("user role changed")
	return nil
}

// DeleteUser удаляет учетную запись. Удалить себя нельзя.
func (w *Workflow) DeleteUser(ctx context.Context, actor, target string) (err error) {
	const op = "delete user"
	defer func() { w.observe(entityUser, "delete", err) }()

	if err := w.access.RequireAdmin(ctx, op, actor); err != nil {
		return err
	}
	if err := access.GuardSelf(op, actor, target); err != nil {
		return err
	}
	if err := w.store.DeleteUser(ctx, target); err != nil {
		return storeError(op, target, err)
	}
	w.logger.Info().Str("user_id", target).Str("admin_id", actor).Msg("user deleted")
	return nil
}

// === Place Methods ===

// CreatePlace - ручное добавление заведения администратором под новым id.
func (w *Workflow) CreatePlace(ctx context.Context, actor string, p domain.Place) (_ *domain.Place, err error) {
	const op = "create place"
	defer func() { w.observe(entityPlace, "create", err) }()
	if err := w.access.RequireAdmin(ctx, op, actor); err != nil {
		return nil, err
	}
	p.ID = w.newID()
	if errs := p.Validate(); len(errs) > 0 {
		return nil, validationError(op, "", errs)
	}
	if err := w.store.CreatePlace(ctx, p); err != nil {
		return nil, storeError(op, p.ID, err)
	}
	w.logger.Info().Str("place_id", p.ID).Str("admin_id", actor).Msg("place created")
	return &p, nil
}

// UpdatePlace заменяет данные существующего заведения.
func (w *Workflow) UpdatePlace(ctx context.Context, actor, id string, p domain.Place) (_ *domain.Place, err error) {
	const op = "update place"
	defer func() { w.observe(entityPlace, "update", err) }()
	if err := w.access.RequireAdmin(ctx, op, actor); err != nil {
		return nil, err
	}
	p.ID = id
	if errs := p.Validate(); len(errs) > 0 {
		return nil, validationError(op, id, errs)
	}
	if _, err := w.store.GetPlace(ctx, id); err != nil {
		return nil, storeError(op, id, err)
	}
	if err := w.store.SetPlace(ctx, p); err != nil {
		return nil, storeError(op, id, err)
	}
	w.logger.Info().Str("place_id", id).Str("admin_id", actor).Msg("place updated")
	return &p, nil
}

// DeletePlace удаляет заведение из публичных данных.
func (w *Workflow) DeletePlace(ctx context.Context, actor, id string) (err error) {
	const op = "delete place"
	defer func() { w.observe(entityPlace, "delete", err) }()
	if err := w.access.RequireAdmin(ctx, op, actor); err != nil {
		return err
	}
	if err := w.store.DeletePlace(ctx, id); err != nil {
		return storeError(op, id, err)
	}
	w.logger.Info().Str("place_id", id).Str("admin_id", actor).Msg("place deleted")
	return nil
}

// GetPlace возвращает заведение по id.
func (w *Workflow) GetPlace(ctx context.Context, id string) (*domain.Place, error) {
	p, err := w.store.GetPlace(ctx, id)
	if err != nil {
		return nil, storeError("get place", id, err)
	}
	return p, nil
}
