package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/UkralStul/barfinder-service/internal/domain"

	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error     string              `json:"error"`
	Message   string              `json:"message"`
	Fields    []domain.FieldError `json:"fields,omitempty"`
	CreatedID string              `json:"createdId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor сопоставляет вид ошибки и HTTP-статус.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindSelfModificationForbidden, domain.KindConflict:
		return http.StatusConflict
	case domain.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	resp := errorResponse{Error: string(kind), Message: err.Error()}
	if kind == "" {
		resp.Error = "Internal"
	}

	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Kind == domain.KindPartialMutation {
		resp.CreatedID = derr.CreatedID
		resp.Message = "transition partially applied, reconcile record " + derr.CreatedID + ": " + err.Error()
	}
	writeJSON(w, statusFor(kind), resp)
}

// badRequest - запрос не разобран: битый JSON или параметры.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BadRequest", Message: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathParam возвращает раскодированный параметр маршрута.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
