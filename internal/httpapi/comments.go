package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/barfinder-service/internal/dataloader"
	"github.com/UkralStul/barfinder-service/internal/domain"

	"github.com/gorilla/websocket"
)

type commentInput struct {
	Text   string `json:"text"`
	Rating *int   `json:"rating,omitempty"`
}

type reviewInput struct {
	Decision domain.Decision `json:"decision"`
}

// pendingCommentView - комментарий в очереди вместе с названием заведения.
type pendingCommentView struct {
	domain.Comment
	PlaceName string `json:"placeName,omitempty"`
}

// === Comment Methods ===

func (s *Server) publicComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.deps.Moderation.PublicComments(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) submitComment(w http.ResponseWriter, r *http.Request) {
	var in commentInput
	if !decodeBody(w, r, &in) {
		return
	}
	c, err := s.deps.Moderation.SubmitComment(r.Context(), actor(r), pathParam(r, "id"), in.Text, in.Rating)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) pendingComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.deps.Moderation.PendingComments(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]pendingCommentView, len(comments))
	ids := make([]string, len(comments))
	for i, c := range comments {
		views[i].Comment = c
		ids[i] = c.PlaceID
	}

	// Названия заведений подгружаются одной пачкой.
	if loaders := dataloader.For(r.Context()); loaders != nil && len(ids) > 0 {
		places, err := loaders.LoadPlaces(r.Context(), ids)
		if err != nil {
			writeError(w, domain.NewError(domain.KindStoreUnavailable, "list pending comments", "", err))
			return
		}
		for i, p := range places {
			if p != nil {
				views[i].PlaceName = p.Name
			}
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) reviewComment(w http.ResponseWriter, r *http.Request) {
	var in reviewInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := s.deps.Moderation.ReviewComment(r.Context(), actor(r), pathParam(r, "id"), in.Decision)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// liveComments отдает по websocket комментарии заведения по мере одобрения.
func (s *Server) liveComments(w http.ResponseWriter, r *http.Request) {
	placeID := pathParam(r, "id")
	if _, err := s.deps.Moderation.GetPlace(r.Context(), placeID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту.
		s.deps.Logger.Warn().Err(err).Str("place_id", placeID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	updates := s.deps.Observer.Subscribe(ctx, placeID)

	// Читаем только ради close-фреймов и понгов.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(keepAlivePingInterval)
	defer ticker.Stop()

	for {
		select {
		case c, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(c); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
