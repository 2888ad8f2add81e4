package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/UkralStul/barfinder-service/internal/discovery"
	"github.com/UkralStul/barfinder-service/internal/moderation"
	"github.com/UkralStul/barfinder-service/internal/region"
)

// === Region Methods ===

func (s *Server) listRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Regions.Regions())
}

func (s *Server) listProvinces(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "region")
	if _, ok := s.deps.Regions.RegionCode(name); !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NotFound", Message: region.ErrUnknownRegion.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Regions.Provinces(name))
}

func (s *Server) listMunicipalities(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "province")
	if _, ok := s.deps.Regions.ProvinceCode(name); !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NotFound", Message: "unknown province"})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Regions.Municipalities(name))
}

// selectionView - каноничный выбор в каскаде вместе с кодами уровней.
type selectionView struct {
	region.Selection
	RegionCode       string `json:"regionCode"`
	ProvinceCode     string `json:"provinceCode,omitempty"`
	MunicipalityCode string `json:"municipalityCode,omitempty"`
	Complete         bool   `json:"complete"`
}

// regionSelection проверяет выбор region -> province -> municipality и
// возвращает его в написании набора данных. Регион можно не указывать,
// если указана провинция.
func (s *Server) regionSelection(w http.ResponseWriter, r *http.Request) {
	idx := s.deps.Regions
	q := r.URL.Query()
	regionName := strings.TrimSpace(q.Get("region"))
	province := strings.TrimSpace(q.Get("province"))
	municipality := strings.TrimSpace(q.Get("municipality"))

	if municipality != "" && province == "" {
		badRequest(w, "municipality requires a province")
		return
	}
	if regionName == "" {
		if province == "" {
			badRequest(w, "region or province is required")
			return
		}
		owner, ok := idx.RegionOf(province)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "NotFound", Message: "unknown province"})
			return
		}
		regionName = owner
	}

	sel, err := idx.WithRegion(region.Selection{}, regionName)
	if err == nil && province != "" {
		sel, err = idx.WithProvince(sel, province)
	}
	if err == nil && municipality != "" {
		sel, err = idx.WithMunicipality(sel, municipality)
	}
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NotFound", Message: err.Error()})
		return
	}

	view := selectionView{Selection: sel, Complete: sel.Complete()}
	view.RegionCode, _ = idx.RegionCode(sel.Region)
	if sel.Province != "" {
		view.ProvinceCode, _ = idx.ProvinceCode(sel.Province)
	}
	if sel.Municipality != "" {
		view.MunicipalityCode, _ = idx.MunicipalityCode(sel.Province, sel.Municipality)
	}
	writeJSON(w, http.StatusOK, view)
}

// === Discovery Methods ===

// queryLocation - позиция пользователя, переданная в параметрах запроса.
type queryLocation struct {
	lat, lon string
}

func (q queryLocation) CurrentLocation(context.Context) (float64, float64, bool, error) {
	if q.lat == "" || q.lon == "" {
		return 0, 0, false, nil
	}
	lat, err := strconv.ParseFloat(q.lat, 64)
	if err != nil {
		return 0, 0, false, nil
	}
	lon, err := strconv.ParseFloat(q.lon, 64)
	if err != nil {
		return 0, 0, false, nil
	}
	return lat, lon, true, nil
}

func (s *Server) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(q.Get("lon")), 64)
	if errLat != nil || errLon != nil {
		badRequest(w, "lat and lon must be numbers")
		return
	}
	s.writeDiscovery(w, s.deps.Discovery.Discover(r.Context(), discovery.Proximity{Lat: lat, Lon: lon}))
}

func (s *Server) byRegion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := s.deps.Discovery.Discover(r.Context(), discovery.Region{
		Province:     q.Get("province"),
		Municipality: q.Get("municipality"),
	})
	s.writeDiscovery(w, res)
}

// discover выбирает стратегию сам: координаты, если они есть и валидны,
// иначе регион из параметров.
func (s *Server) discover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var manual *discovery.Region
	if q.Get("province") != "" || q.Get("municipality") != "" {
		manual = &discovery.Region{Province: q.Get("province"), Municipality: q.Get("municipality")}
	}

	strategy, err := discovery.ChooseStrategy(r.Context(), queryLocation{lat: q.Get("lat"), lon: q.Get("lon")}, manual)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	s.writeDiscovery(w, s.deps.Discovery.Discover(r.Context(), strategy))
}

func (s *Server) writeDiscovery(w http.ResponseWriter, res discovery.Result) {
	status := http.StatusOK
	switch res.Diagnostic.Kind {
	case discovery.DiagnosticInvalidQuery:
		status = http.StatusBadRequest
	case discovery.DiagnosticStoreError:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// === Place Methods ===

func (s *Server) getPlace(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Moderation.GetPlace(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	var draft moderation.PlaceRequestDraft
	if !decodeBody(w, r, &draft) {
		return
	}
	req, err := s.deps.Moderation.SubmitRequest(r.Context(), actor(r), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}
