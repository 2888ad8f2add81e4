// Package discovery превращает контекст поиска в отсортированный список заведений.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/geo"
	"github.com/UkralStul/barfinder-service/internal/labels"
	"github.com/UkralStul/barfinder-service/internal/metrics"

	"github.com/rs/zerolog"
)

// DefaultRadiusKm - радиус поиска вокруг точки. Заведения на этом
// расстоянии и дальше в выдачу не попадают.
const DefaultRadiusKm = 50.0

// DiagnosticKind объясняет пустую или неполную выдачу.
type DiagnosticKind string

const (
	DiagnosticNone         DiagnosticKind = "None"
	DiagnosticStoreEmpty   DiagnosticKind = "StoreEmpty"
	DiagnosticNoMatches    DiagnosticKind = "NoMatches"
	DiagnosticStoreError   DiagnosticKind = "StoreError"
	DiagnosticInvalidQuery DiagnosticKind = "InvalidQuery"
)

// Diagnostic - итог поиска для вызывающей стороны.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message,omitempty"`
}

// Match - заведение в выдаче. DistanceKm заполнен только для поиска по точке.
type Match struct {
	Place      domain.Place `json:"place"`
	DistanceKm *float64     `json:"distanceKm,omitempty"`
}

// Result - выдача поиска. Places никогда не nil.
type Result struct {
	Places     []Match    `json:"places"`
	Diagnostic Diagnostic `json:"diagnostic"`
}

// PlaceSource - источник опубликованных заведений.
type PlaceSource interface {
	ListPlaces(ctx context.Context) ([]domain.Place, error)
}

// Engine выполняет поиск. Безопасен для конкурентного использования:
// состояние между вызовами не хранится.
type Engine struct {
	places   PlaceSource
	radiusKm float64
	logger   zerolog.Logger
	metrics  *metrics.Recorder
}

// Option настраивает Engine.
type Option func(*Engine)

// WithRadiusKm задает радиус поиска; неположительные значения игнорируются.
func WithRadiusKm(km float64) Option {
	return func(e *Engine) {
		if km > 0 {
			e.radiusKm = km
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine создает движок поиска.
func NewEngine(places PlaceSource, opts ...Option) *Engine {
	e := &Engine{
		places:   places,
		radiusKm: DefaultRadiusKm,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RadiusKm возвращает действующий радиус поиска.
func (e *Engine) RadiusKm() float64 {
	return e.radiusKm
}

// Discover выполняет поиск. Ошибки хранилища не возвращаются:
// они превращаются в пустую выдачу с диагностикой StoreError.
func (e *Engine) Discover(ctx context.Context, s Strategy) Result {
	start := time.Now()
	res := e.discover(ctx, s)

	e.metrics.ObserveDiscovery(Name(s), string(res.Diagnostic.Kind), len(res.Places), time.Since(start))
	e.logger.Debug().
		Str("strategy", Name(s)).
		Str("diagnostic", string(res.Diagnostic.Kind)).
		Int("results", len(res.Places)).
		Dur("took", time.Since(start)).
		Msg("discovery finished")
	return res
}

func (e *Engine) discover(ctx context.Context, s Strategy) Result {
	// Проверка запроса до обращения к хранилищу.
	switch q := s.(type) {
	case Proximity:
		if !q.point().Valid() {
			return diagnostic(DiagnosticInvalidQuery, fmt.Sprintf("invalid reference point (%v, %v)", q.Lat, q.Lon))
		}
	case Region:
		if q.blank() {
			return diagnostic(DiagnosticInvalidQuery, "province and municipality are required")
		}
	default:
		return diagnostic(DiagnosticInvalidQuery, "unknown strategy")
	}

	all, err := e.places.ListPlaces(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("strategy", Name(s)).Msg("discovery store read failed")
		return diagnostic(DiagnosticStoreError, err.Error())
	}

	valid := make([]domain.Place, 0, len(all))
	for _, p := range all {
		if p.Valid() {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return diagnostic(DiagnosticStoreEmpty, "")
	}

	var matches []Match
	switch q := s.(type) {
	case Proximity:
		matches = e.nearby(valid, q)
	case Region:
		matches = inRegion(valid, q)
	}
	if len(matches) == 0 {
		return diagnostic(DiagnosticNoMatches, "")
	}
	return Result{Places: matches, Diagnostic: Diagnostic{Kind: DiagnosticNone}}
}

func (e *Engine) nearby(places []domain.Place, q Proximity) []Match {
	matches := make([]Match, 0, len(places))
	for _, p := range places {
		lat, lon, _ := p.Coordinates()
		d := geo.Distance(q.point(), geo.Point{Lat: lat, Lon: lon})
		if d < e.radiusKm {
			matches = append(matches, Match{Place: p, DistanceKm: &d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		di, dj := *matches[i].DistanceKm, *matches[j].DistanceKm
		if di != dj {
			return di < dj
		}
		return byName(matches[i].Place, matches[j].Place)
	})
	return matches
}

func inRegion(places []domain.Place, q Region) []Match {
	matches := make([]Match, 0, len(places))
	for _, p := range places {
		if labels.Equal(p.Province, q.Province) && labels.Equal(p.Municipality, q.Municipality) {
			matches = append(matches, Match{Place: p})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return byName(matches[i].Place, matches[j].Place)
	})
	return matches
}

// byName: по имени без учета регистра, затем по id.
func byName(a, b domain.Place) bool {
	na, nb := labels.Normalize(a.Name), labels.Normalize(b.Name)
	if na != nb {
		return na < nb
	}
	return a.ID < b.ID
}

func diagnostic(kind DiagnosticKind, msg string) Result {
	return Result{Places: []Match{}, Diagnostic: Diagnostic{Kind: kind, Message: msg}}
}
