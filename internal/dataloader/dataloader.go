package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/UkralStul/barfinder-service/internal/domain"

	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// PlaceBatcher загружает заведения пачкой по списку id.
type PlaceBatcher interface {
	PlacesByIDs(ctx context.Context, ids []string) (map[string]*domain.Place, error)
}

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	PlaceByID *dataloader.Loader
}

// NewLoaders создает лоадеры на один запрос: кэш лоадера живет столько же.
func NewLoaders(places PlaceBatcher) *Loaders {
	// Создаем батч-функцию для лоадера
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]string, len(keys))
		for i, k := range keys {
			ids[i] = k.String()
		}

		// Один вызов хранилища на всю пачку
		byID, err := places.PlacesByIDs(ctx, ids)
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if p, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: p}
			} else {
				results[i] = &dataloader.Result{Data: (*domain.Place)(nil)}
			}
		}
		return results
	}

	return &Loaders{
		PlaceByID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond*1)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(places PlaceBatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, NewLoaders(places))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For извлекает лоадеры из контекста. Nil, если middleware не подключен.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(key).(*Loaders)
	return l
}

// LoadPlaces загружает заведения по id одной пачкой.
// Для отсутствующих id в результате nil.
func (l *Loaders) LoadPlaces(ctx context.Context, ids []string) ([]*domain.Place, error) {
	thunks := make([]dataloader.Thunk, len(ids))
	for i, id := range ids {
		thunks[i] = l.PlaceByID.Load(ctx, dataloader.StringKey(id))
	}

	out := make([]*domain.Place, len(ids))
	for i, thunk := range thunks {
		v, err := thunk()
		if err != nil {
			return nil, err
		}
		p, ok := v.(*domain.Place)
		if !ok {
			return nil, fmt.Errorf("unexpected loader value %T", v)
		}
		out[i] = p
	}
	return out, nil
}
