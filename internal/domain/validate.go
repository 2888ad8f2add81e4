package domain

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxCommentLength - предельная длина текста комментария.
const MaxCommentLength = 2000

// ParseCoordinate разбирает координату, сохраненную текстом.
// NaN и бесконечности считаются ошибкой.
func ParseCoordinate(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatCoordinate - обратное преобразование для записи в коллекцию Places.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Coordinates возвращает разобранные координаты заведения.
func (p Place) Coordinates() (lat, lon float64, ok bool) {
	lat, okLat := ParseCoordinate(p.Latitude)
	lon, okLon := ParseCoordinate(p.Longitude)
	return lat, lon, okLat && okLon
}

// Validate проверяет инвариант публикации: непустые id, name, address,
// province, municipality и конечные координаты.
func (p Place) Validate() ValidationErrors {
	var errs ValidationErrors
	if isBlank(p.ID) {
		errs = append(errs, FieldError{Field: "id", Reason: "is required"})
	}
	errs = append(errs, requiredPlaceFields(p.Name, p.Address, p.Province, p.Municipality)...)
	if _, ok := ParseCoordinate(p.Latitude); !ok {
		errs = append(errs, FieldError{Field: "latitude", Reason: "must be a number"})
	}
	if _, ok := ParseCoordinate(p.Longitude); !ok {
		errs = append(errs, FieldError{Field: "longitude", Reason: "must be a number"})
	}
	return errs
}

// Valid - короткая форма Validate для фильтрации выборок.
func (p Place) Valid() bool {
	return len(p.Validate()) == 0
}

// ValidateForApproval - те же правила, что и у Place, кроме id:
// идентификатор заведения генерируется в момент одобрения.
func (r PlaceRequest) ValidateForApproval() ValidationErrors {
	errs := requiredPlaceFields(r.Name, r.Address, r.Province, r.Municipality)
	if !finite(r.Latitude) {
		errs = append(errs, FieldError{Field: "latitude", Reason: "must be a number"})
	}
	if !finite(r.Longitude) {
		errs = append(errs, FieldError{Field: "longitude", Reason: "must be a number"})
	}
	return errs
}

// ToPlace строит заведение из заявки под новым идентификатором.
func (r PlaceRequest) ToPlace(placeID string) Place {
	return Place{
		ID:           placeID,
		Name:         strings.TrimSpace(r.Name),
		Address:      strings.TrimSpace(r.Address),
		Province:     strings.TrimSpace(r.Province),
		Municipality: strings.TrimSpace(r.Municipality),
		Latitude:     FormatCoordinate(r.Latitude),
		Longitude:    FormatCoordinate(r.Longitude),
		Phone:        strings.TrimSpace(r.Phone),
		OpeningHours: strings.TrimSpace(r.OpeningHours),
		Rating:       r.Rating,
	}
}

// ValidateComment проверяет текст и оценку нового комментария.
func ValidateComment(text string, rating *int) ValidationErrors {
	var errs ValidationErrors
	if isBlank(text) {
		errs = append(errs, FieldError{Field: "text", Reason: "cannot be empty"})
	} else if utf8.RuneCountInString(text) > MaxCommentLength {
		errs = append(errs, FieldError{Field: "text", Reason: "is too long"})
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		errs = append(errs, FieldError{Field: "rating", Reason: "must be between 1 and 5"})
	}
	return errs
}

func requiredPlaceFields(name, address, province, municipality string) ValidationErrors {
	var errs ValidationErrors
	for _, f := range []struct{ field, value string }{
		{"name", name},
		{"address", address},
		{"province", province},
		{"municipality", municipality},
	} {
		if isBlank(f.value) {
			errs = append(errs, FieldError{Field: f.field, Reason: "is required"})
		}
	}
	return errs
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
