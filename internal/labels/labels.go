// Package labels нормализует и сортирует текстовые метки: названия
// регионов, провинций, муниципалитетов и заведений.
package labels

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	folder = cases.Fold()

	// collate.Collator не потокобезопасен, поэтому держим пул.
	collators = sync.Pool{
		New: func() any { return collate.New(language.Spanish, collate.IgnoreCase) },
	}
)

// Normalize приводит метку к виду для сравнения: NFC, без пробелов по краям,
// одиночные пробелы внутри, регистр свернут.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return folder.String(s)
}

// Equal сравнивает метки без учета регистра и пробелов.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Compare упорядочивает метки по правилам испанского алфавита без учета
// регистра. При равенстве сравниваются исходные строки, чтобы порядок был
// детерминированным.
func Compare(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)

	if r := c.CompareString(a, b); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

// Sort сортирует метки на месте.
func Sort(items []string) {
	sort.SliceStable(items, func(i, j int) bool {
		return Compare(items[i], items[j]) < 0
	})
}
