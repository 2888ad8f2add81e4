package discovery

import (
	"context"
	"errors"
	"strings"

	"github.com/UkralStul/barfinder-service/internal/geo"
)

// Strategy - контекст поиска: либо точка на карте, либо административный регион.
// Набор вариантов закрыт: Proximity и Region.
type Strategy interface {
	strategyName() string
}

// Proximity - поиск вокруг точки.
type Proximity struct {
	Lat float64
	Lon float64
}

// Region - поиск по провинции и муниципалитету.
type Region struct {
	Province     string
	Municipality string
}

func (Proximity) strategyName() string { return "proximity" }
func (Region) strategyName() string    { return "region" }

// Name возвращает имя стратегии для логов и метрик.
func Name(s Strategy) string {
	if s == nil {
		return "none"
	}
	return s.strategyName()
}

func (p Proximity) point() geo.Point {
	return geo.Point{Lat: p.Lat, Lon: p.Lon}
}

func (r Region) blank() bool {
	return strings.TrimSpace(r.Province) == "" || strings.TrimSpace(r.Municipality) == ""
}

// ErrNoLocation - нет ни координат, ни выбранного вручную региона.
var ErrNoLocation = errors.New("no location available")

// LocationProvider - внешний источник текущего положения пользователя.
// ok=false означает, что позиция неизвестна (нет разрешения, нет сигнала).
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (lat, lon float64, ok bool, err error)
}

// ChooseStrategy выбирает стратегию: пригодная позиция дает Proximity,
// иначе используется регион, выбранный вручную.
func ChooseStrategy(ctx context.Context, provider LocationProvider, manual *Region) (Strategy, error) {
	if provider != nil {
		lat, lon, ok, err := provider.CurrentLocation(ctx)
		if err == nil && ok && (geo.Point{Lat: lat, Lon: lon}).Valid() {
			return Proximity{Lat: lat, Lon: lon}, nil
		}
	}
	if manual != nil && !manual.blank() {
		return *manual, nil
	}
	return nil, ErrNoLocation
}
