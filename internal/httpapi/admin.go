package httpapi

import (
	"net/http"

	"github.com/UkralStul/barfinder-service/internal/domain"
)

type roleInput struct {
	Role domain.Role `json:"role"`
}

// === Request Moderation Methods ===

func (s *Server) pendingRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.deps.Moderation.PendingRequests(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) reviewRequest(w http.ResponseWriter, r *http.Request) {
	var in reviewInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := s.deps.Moderation.ReviewRequest(r.Context(), actor(r), pathParam(r, "id"), in.Decision)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// === Place Admin Methods ===

func (s *Server) createPlace(w http.ResponseWriter, r *http.Request) {
	var p domain.Place
	if !decodeBody(w, r, &p) {
		return
	}
	created, err := s.deps.Moderation.CreatePlace(r.Context(), actor(r), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updatePlace(w http.ResponseWriter, r *http.Request) {
	var p domain.Place
	if !decodeBody(w, r, &p) {
		return
	}
	updated, err := s.deps.Moderation.UpdatePlace(r.Context(), actor(r), pathParam(r, "id"), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deletePlace(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Moderation.DeletePlace(r.Context(), actor(r), pathParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === User Admin Methods ===

func (s *Server) setUserRole(w http.ResponseWriter, r *http.Request) {
	var in roleInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := s.deps.Moderation.SetUserRole(r.Context(), actor(r), pathParam(r, "id"), in.Role); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Moderation.DeleteUser(r.Context(), actor(r), pathParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
