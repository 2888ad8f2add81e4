// Package httpapi - JSON API сервиса поверх chi.
package httpapi

import (
	"net/http"
	"time"

	"github.com/UkralStul/barfinder-service/internal/dataloader"
	"github.com/UkralStul/barfinder-service/internal/discovery"
	"github.com/UkralStul/barfinder-service/internal/events"
	"github.com/UkralStul/barfinder-service/internal/metrics"
	"github.com/UkralStul/barfinder-service/internal/moderation"
	"github.com/UkralStul/barfinder-service/internal/region"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// UserHeader - заголовок с id пользователя, проставляемый шлюзом аутентификации.
const UserHeader = "X-User-ID"

const keepAlivePingInterval = 10 * time.Second

// Deps - зависимости HTTP-слоя.
type Deps struct {
	Regions    *region.Index
	Discovery  *discovery.Engine
	Moderation *moderation.Workflow
	Places     dataloader.PlaceBatcher
	Observer   *events.CommentObserver
	Metrics    *metrics.Recorder
	Logger     zerolog.Logger
}

// Server обрабатывает HTTP-запросы.
type Server struct {
	deps     Deps
	upgrader websocket.Upgrader
}

// NewRouter собирает маршруты сервиса.
func NewRouter(deps Deps) http.Handler {
	s := &Server{
		deps: deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogging(deps.Logger, deps.Metrics))
	router.Use(middleware.Recoverer)

	router.Get("/health", s.health)
	router.Handle("/metrics", deps.Metrics.Handler())

	router.Get("/regions", s.listRegions)
	router.Get("/regions/selection", s.regionSelection)
	router.Get("/regions/{region}/provinces", s.listProvinces)
	router.Get("/provinces/{province}/municipalities", s.listMunicipalities)

	router.Route("/places", func(r chi.Router) {
		r.Get("/nearby", s.nearby)
		r.Get("/by-region", s.byRegion)
		r.Get("/discover", s.discover)
		r.Get("/{id}", s.getPlace)
		r.Get("/{id}/comments", s.publicComments)
		r.Get("/{id}/comments/live", s.liveComments)
		r.Post("/{id}/comments", s.submitComment)
	})
	router.Post("/requests", s.submitRequest)

	router.Route("/admin", func(r chi.Router) {
		r.Get("/requests", s.pendingRequests)
		r.Post("/requests/{id}/review", s.reviewRequest)
		r.With(dataloader.Middleware(deps.Places)).Get("/comments", s.pendingComments)
		r.Post("/comments/{id}/review", s.reviewComment)
		r.Post("/places", s.createPlace)
		r.Put("/places/{id}", s.updatePlace)
		r.Delete("/places/{id}", s.deletePlace)
		r.Put("/users/{id}/role", s.setUserRole)
		r.Delete("/users/{id}", s.deleteUser)
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actor - id пользователя, от имени которого выполняется запрос.
func actor(r *http.Request) string {
	return r.Header.Get(UserHeader)
}
