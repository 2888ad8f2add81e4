package discovery

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/geo"
	"github.com/UkralStul/barfinder-service/internal/placestore"
	"github.com/UkralStul/barfinder-service/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	madridLat, madridLon = 40.4168, -3.7038
)

type staticSource struct {
	places []domain.Place
	err    error
}

func (s staticSource) ListPlaces(context.Context) ([]domain.Place, error) {
	return s.places, s.err
}

func place(id, name, province, municipality, lat, lon string) domain.Place {
	return domain.Place{
		ID: id, Name: name, Address: "Calle " + name,
		Province: province, Municipality: municipality,
		Latitude: lat, Longitude: lon,
	}
}

func fixtures() []domain.Place {
	return []domain.Place{
		place("bcn", "Bar Barcelona", "Barcelona", "Barcelona", "41.3874", "2.1686"),
		place("mad", "Bar Sol", "Madrid", "Madrid", "40.4169", "-3.7035"),
		place("get", "Bar Getafe", "Madrid", "Getafe", "40.3057", "-3.7329"),
		place("alc", "Bar Alcalá", "Madrid", "Alcalá de Henares", "40.4820", "-3.3640"),
		place("tol", "Bar Toledo", "Toledo", "Toledo", "39.8628", "-4.0273"),
	}
}

func newTestEngine(t *testing.T, places []domain.Place, opts ...Option) *Engine {
	t.Helper()
	return NewEngine(staticSource{places: places}, opts...)
}

func ids(res Result) []string {
	out := make([]string, 0, len(res.Places))
	for _, m := range res.Places {
		out = append(out, m.Place.ID)
	}
	return out
}

func TestDiscover_ProximityMadrid(t *testing.T) {
	e := newTestEngine(t, fixtures())

	res := e.Discover(context.Background(), Proximity{Lat: madridLat, Lon: madridLon})

	assert.Equal(t, DiagnosticNone, res.Diagnostic.Kind)
	assert.Equal(t, []string{"mad", "get", "alc"}, ids(res))
	for i, m := range res.Places {
		require.NotNil(t, m.DistanceKm)
		assert.Less(t, *m.DistanceKm, DefaultRadiusKm)
		if i > 0 {
			assert.LessOrEqual(t, *res.Places[i-1].DistanceKm, *m.DistanceKm)
		}
	}
}

func TestDiscover_ProximityExcludesBoundary(t *testing.T) {
	places := fixtures()
	boundary := geo.DistanceKm(madridLat, madridLon, 40.3057, -3.7329)

	e := newTestEngine(t, places, WithRadiusKm(boundary))
	res := e.Discover(context.Background(), Proximity{Lat: madridLat, Lon: madridLon})

	assert.Equal(t, []string{"mad"}, ids(res))
}

func TestDiscover_ProximityTiesByNameThenID(t *testing.T) {
	places := []domain.Place{
		place("b", "beta", "Madrid", "Madrid", "40.0", "-3.0"),
		place("a2", "Alfa", "Madrid", "Madrid", "40.0", "-3.0"),
		place("a1", "alfa", "Madrid", "Madrid", "40.0", "-3.0"),
	}
	e := newTestEngine(t, places)

	res := e.Discover(context.Background(), Proximity{Lat: 40.0, Lon: -3.0})
	assert.Equal(t, []string{"a1", "a2", "b"}, ids(res))
}

func TestDiscover_ProximityNoMatches(t *testing.T) {
	e := newTestEngine(t, fixtures())

	// Открытый океан.
	res := e.Discover(context.Background(), Proximity{Lat: 0, Lon: -30})
	assert.Equal(t, DiagnosticNoMatches, res.Diagnostic.Kind)
	assert.NotNil(t, res.Places)
	assert.Empty(t, res.Places)
}

func TestDiscover_RegionIsCaseAndSpaceInsensitive(t *testing.T) {
	e := newTestEngine(t, fixtures())

	res := e.Discover(context.Background(), Region{Province: "  madrid ", Municipality: "GETAFE"})
	assert.Equal(t, DiagnosticNone, res.Diagnostic.Kind)
	assert.Equal(t, []string{"get"}, ids(res))
	assert.Nil(t, res.Places[0].DistanceKm)

	res = e.Discover(context.Background(), Region{Province: "Barcelona", Municipality: "barcelona"})
	assert.Equal(t, []string{"bcn"}, ids(res))
}

func TestDiscover_RegionSortedByName(t *testing.T) {
	places := []domain.Place{
		place("2", "Zaguán", "Madrid", "Madrid", "40.4", "-3.7"),
		place("1", "asador", "Madrid", "Madrid", "40.4", "-3.7"),
		place("3", "Bodega", "Madrid", "Madrid", "40.4", "-3.7"),
	}
	e := newTestEngine(t, places)

	res := e.Discover(context.Background(), Region{Province: "Madrid", Municipality: "Madrid"})
	assert.Equal(t, []string{"1", "3", "2"}, ids(res))
}

func TestDiscover_InvalidPlacesAreDropped(t *testing.T) {
	places := append(fixtures(),
		place("", "Sin id", "Madrid", "Madrid", "40.4168", "-3.7038"),
		place("nolat", "Sin latitud", "Madrid", "Madrid", "abc", "-3.7038"),
		place("noname", " ", "Madrid", "Madrid", "40.4168", "-3.7038"),
	)
	e := newTestEngine(t, places)

	res := e.Discover(context.Background(), Region{Province: "Madrid", Municipality: "Madrid"})
	assert.Equal(t, []string{"mad"}, ids(res))
}

func TestDiscover_StoreEmpty(t *testing.T) {
	ctx := context.Background()

	res := newTestEngine(t, nil).Discover(ctx, Proximity{Lat: madridLat, Lon: madridLon})
	assert.Equal(t, DiagnosticStoreEmpty, res.Diagnostic.Kind)

	onlyInvalid := []domain.Place{place("x", "", "Madrid", "Madrid", "1", "1")}
	res = newTestEngine(t, onlyInvalid).Discover(ctx, Region{Province: "Madrid", Municipality: "Madrid"})
	assert.Equal(t, DiagnosticStoreEmpty, res.Diagnostic.Kind)
	assert.Empty(t, res.Places)
}

func TestDiscover_StoreErrorIsNotPropagated(t *testing.T) {
	e := NewEngine(staticSource{err: errors.New("connection refused")})

	res := e.Discover(context.Background(), Proximity{Lat: madridLat, Lon: madridLon})
	assert.Equal(t, DiagnosticStoreError, res.Diagnostic.Kind)
	assert.Contains(t, res.Diagnostic.Message, "connection refused")
	assert.NotNil(t, res.Places)
	assert.Empty(t, res.Places)
}

func TestDiscover_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestEngine(t, fixtures()).Discover(ctx, Proximity{Lat: madridLat, Lon: madridLon})
	assert.Equal(t, DiagnosticStoreError, res.Diagnostic.Kind)
}

func TestDiscover_InvalidQuery(t *testing.T) {
	e := newTestEngine(t, fixtures())
	ctx := context.Background()

	for name, s := range map[string]Strategy{
		"nan latitude":       Proximity{Lat: math.NaN(), Lon: 0},
		"out of range":       Proximity{Lat: 91, Lon: 0},
		"blank province":     Region{Province: " ", Municipality: "Madrid"},
		"blank municipality": Region{Province: "Madrid"},
		"nil strategy":       nil,
	} {
		t.Run(name, func(t *testing.T) {
			res := e.Discover(ctx, s)
			assert.Equal(t, DiagnosticInvalidQuery, res.Diagnostic.Kind)
			assert.Empty(t, res.Places)
		})
	}
}

func TestDiscover_OverPlaceStore(t *testing.T) {
	ctx := context.Background()
	ps := placestore.New(inmemory.New())
	for _, p := range fixtures() {
		require.NoError(t, ps.SetPlace(ctx, p))
	}

	res := NewEngine(ps).Discover(ctx, Proximity{Lat: 41.39, Lon: 2.17})
	assert.Equal(t, []string{"bcn"}, ids(res))
}
