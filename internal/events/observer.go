// Package events рассылает одобренные комментарии подписчикам заведения.
package events

import (
	"context"
	"sync"

	"github.com/UkralStul/barfinder-service/internal/domain"

	"github.com/google/uuid"
)

// subscriberBuffer - сколько комментариев подписчик может не прочитать,
// прежде чем новые начнут пропускаться.
const subscriberBuffer = 8

// CommentObserver хранит каналы подписчиков на одобренные комментарии.
type CommentObserver struct {
	mu sync.RWMutex
	//          map[placeID] map[subscriberID] channel
	subs map[string]map[string]chan domain.Comment
}

// NewCommentObserver - конструктор наблюдателя.
func NewCommentObserver() *CommentObserver {
	return &CommentObserver{
		subs: make(map[string]map[string]chan domain.Comment),
	}
}

// Subscribe регистрирует подписчика на комментарии заведения.
// Канал закрывается, когда ctx завершается.
func (o *CommentObserver) Subscribe(ctx context.Context, placeID string) <-chan domain.Comment {
	ch := make(chan domain.Comment, subscriberBuffer)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[placeID] == nil {
		o.subs[placeID] = make(map[string]chan domain.Comment)
	}
	o.subs[placeID][subID] = ch
	o.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if placeSubs, ok := o.subs[placeID]; ok {
			delete(placeSubs, subID)
			if len(placeSubs) == 0 {
				delete(o.subs, placeID)
			}
		}
		close(ch)
		o.mu.Unlock()
	}()

	return ch
}

// CommentApproved рассылает комментарий подписчикам его заведения.
// Не блокируется: медленный подписчик пропускает событие.
func (o *CommentObserver) CommentApproved(c domain.Comment) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ch := range o.subs[c.PlaceID] {
		select {
		case ch <- c:
		default:
			// Клиент не успевает читать
		}
	}
}

// Subscribers - число активных подписчиков заведения.
func (o *CommentObserver) Subscribers(placeID string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[placeID])
}
