// Package access проверяет права пользователя на операции модерации.
package access

import (
	"context"
	"errors"
	"strings"

	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/storage"
)

// UserSource - источник учетных записей.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Control отвечает на вопрос "может ли этот пользователь модерировать".
type Control struct {
	users UserSource
}

func New(users UserSource) *Control {
	return &Control{users: users}
}

// IsAdmin: пустой или неизвестный пользователь администратором не считается.
// Ошибка возвращается только при недоступности хранилища.
func (c *Control) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, nil
	}
	u, err := c.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsAdmin(), nil
}

// RequireAdmin возвращает PermissionDenied, если у пользователя нет роли admin.
func (c *Control) RequireAdmin(ctx context.Context, op, userID string) error {
	ok, err := c.IsAdmin(ctx, userID)
	if err != nil {
		return domain.NewError(domain.KindStoreUnavailable, op, userID, err)
	}
	if !ok {
		return domain.NewError(domain.KindPermissionDenied, op, userID, nil)
	}
	return nil
}

// GuardSelf запрещает администратору удалять или понижать собственную запись.
func GuardSelf(op, actorID, targetID string) error {
	if actorID != "" && actorID == targetID {
		return domain.NewError(domain.KindSelfModificationForbidden, op, targetID, nil)
	}
	return nil
}
