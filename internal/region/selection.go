package region

import (
	"errors"

	"github.com/UkralStul/barfinder-service/internal/labels"
)

var (
	ErrUnknownRegion       = errors.New("unknown region")
	ErrUnknownProvince     = errors.New("province does not belong to the selected region")
	ErrUnknownMunicipality = errors.New("municipality does not belong to the selected province")
)

// Selection - выбор пользователя в каскаде регион -> провинция -> муниципалитет.
// Смена верхнего уровня сбрасывает все зависимые уровни.
type Selection struct {
	Region       string `json:"region"`
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
}

// WithRegion выбирает регион и сбрасывает провинцию и муниципалитет.
func (i *Index) WithRegion(_ Selection, region string) (Selection, error) {
	label, ok := i.canonicalRegion(region)
	if !ok {
		return Selection{}, ErrUnknownRegion
	}
	return Selection{Region: label}, nil
}

// WithProvince выбирает провинцию внутри выбранного региона и сбрасывает муниципалитет.
func (i *Index) WithProvince(sel Selection, province string) (Selection, error) {
	pe, ok := i.canonicalProvince(province)
	if !ok || !labels.Equal(pe.region, sel.Region) {
		return Selection{Region: sel.Region}, ErrUnknownProvince
	}
	return Selection{Region: sel.Region, Province: pe.label}, nil
}

// WithMunicipality выбирает муниципалитет внутри выбранной провинции.
func (i *Index) WithMunicipality(sel Selection, municipality string) (Selection, error) {
	pe, ok := i.canonicalProvince(sel.Province)
	if !ok {
		return Selection{Region: sel.Region}, ErrUnknownProvince
	}
	key := labels.Normalize(municipality)
	if _, ok := pe.muniCodes[key]; !ok {
		return Selection{Region: sel.Region, Province: sel.Province}, ErrUnknownMunicipality
	}
	for _, m := range pe.municipalities {
		if labels.Normalize(m) == key {
			sel.Municipality = m
			break
		}
	}
	return sel, nil
}

// Complete: выбраны все три уровня.
func (s Selection) Complete() bool {
	return s.Region != "" && s.Province != "" && s.Municipality != ""
}
