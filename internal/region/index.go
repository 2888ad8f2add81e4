// Package region - справочник административного деления
// (регион -> провинция -> муниципалитет) для ручного выбора места поиска.
package region

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/UkralStul/barfinder-service/internal/labels"
)

//go:embed data/regions.yaml
var defaultDataset []byte

// Record - регион в исходном наборе данных.
type Record struct {
	Region    string           `yaml:"region"`
	Code      string           `yaml:"code"`
	Provinces []ProvinceRecord `yaml:"provinces"`
}

// ProvinceRecord - провинция в исходном наборе данных.
type ProvinceRecord struct {
	Province       string               `yaml:"province"`
	Code           string               `yaml:"code"`
	Municipalities []MunicipalityRecord `yaml:"municipalities"`
}

// MunicipalityRecord - муниципалитет в исходном наборе данных.
type MunicipalityRecord struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

type regionEntry struct {
	label     string
	code      string
	provinces []string
}

type provinceEntry struct {
	label          string
	code           string
	region         string
	municipalities []string
	muniCodes      map[string]string
}

// Index - неизменяемый справочник. Строится один раз, после чего безопасен
// для конкурентного чтения.
type Index struct {
	regionLabels []string
	regions      map[string]*regionEntry
	provinces    map[string]*provinceEntry
}

// Default загружает встроенный набор данных.
func Default() (*Index, error) {
	return Load(bytes.NewReader(defaultDataset))
}

// LoadFile загружает набор данных из YAML-файла.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open region dataset: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load разбирает YAML и строит справочник.
func Load(r io.Reader) (*Index, error) {
	var records []Record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode region dataset: %w", err)
	}
	return Build(records)
}

// Build строит справочник из уже разобранных записей.
// Метки с пустым названием пропускаются, повторы объединяются.
func Build(records []Record) (*Index, error) {
	idx := &Index{
		regions:   make(map[string]*regionEntry),
		provinces: make(map[string]*provinceEntry),
	}

	for _, rec := range records {
		rKey := labels.Normalize(rec.Region)
		if rKey == "" {
			continue
		}
		re, ok := idx.regions[rKey]
		if !ok {
			re = &regionEntry{label: rec.Region, code: rec.Code}
			idx.regions[rKey] = re
			idx.regionLabels = append(idx.regionLabels, rec.Region)
		}

		for _, prov := range rec.Provinces {
			pKey := labels.Normalize(prov.Province)
			if pKey == "" {
				continue
			}
			pe, ok := idx.provinces[pKey]
			if !ok {
				pe = &provinceEntry{
					label:     prov.Province,
					code:      prov.Code,
					region:    re.label,
					muniCodes: make(map[string]string),
				}
				idx.provinces[pKey] = pe
				re.provinces = append(re.provinces, prov.Province)
			} else if labels.Normalize(pe.region) != rKey {
				return nil, fmt.Errorf("province %q listed under %q and %q", prov.Province, pe.region, rec.Region)
			}

			for _, m := range prov.Municipalities {
				mKey := labels.Normalize(m.Name)
				if mKey == "" {
					continue
				}
				if _, dup := pe.muniCodes[mKey]; dup {
					continue
				}
				pe.muniCodes[mKey] = m.Code
				pe.municipalities = append(pe.municipalities, m.Name)
			}
		}
	}

	labels.Sort(idx.regionLabels)
	for _, re := range idx.regions {
		labels.Sort(re.provinces)
	}
	for _, pe := range idx.provinces {
		labels.Sort(pe.municipalities)
	}
	return idx, nil
}

// Regions - все регионы по алфавиту.
func (i *Index) Regions() []string {
	return clone(i.regionLabels)
}

// Provinces - провинции региона. Пустой срез для пустого или неизвестного региона.
func (i *Index) Provinces(region string) []string {
	re, ok := i.regions[labels.Normalize(region)]
	if !ok {
		return []string{}
	}
	return clone(re.provinces)
}

// Municipalities - муниципалитеты провинции. Пустой срез для пустой или
// неизвестной провинции.
func (i *Index) Municipalities(province string) []string {
	pe, ok := i.provinces[labels.Normalize(province)]
	if !ok {
		return []string{}
	}
	return clone(pe.municipalities)
}

// RegionOf возвращает регион, к которому относится провинция.
func (i *Index) RegionOf(province string) (string, bool) {
	pe, ok := i.provinces[labels.Normalize(province)]
	if !ok {
		return "", false
	}
	return pe.region, true
}

// RegionCode - код региона.
func (i *Index) RegionCode(region string) (string, bool) {
	re, ok := i.regions[labels.Normalize(region)]
	if !ok {
		return "", false
	}
	return re.code, true
}

// ProvinceCode - код провинции.
func (i *Index) ProvinceCode(province string) (string, bool) {
	pe, ok := i.provinces[labels.Normalize(province)]
	if !ok {
		return "", false
	}
	return pe.code, true
}

// MunicipalityCode - код муниципалитета внутри провинции.
func (i *Index) MunicipalityCode(province, municipality string) (string, bool) {
	pe, ok := i.provinces[labels.Normalize(province)]
	if !ok {
		return "", false
	}
	code, ok := pe.muniCodes[labels.Normalize(municipality)]
	return code, ok
}

// canonicalRegion возвращает метку региона в написании набора данных.
func (i *Index) canonicalRegion(region string) (string, bool) {
	re, ok := i.regions[labels.Normalize(region)]
	if !ok {
		return "", false
	}
	return re.label, true
}

func (i *Index) canonicalProvince(province string) (*provinceEntry, bool) {
	pe, ok := i.provinces[labels.Normalize(province)]
	return pe, ok
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
