package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// SameTitle reports whether two section titles match exactly, ignoring case
// and surrounding whitespace. Full Unicode case folding is applied so that
// "STRASSE" matches "straße".
func SameTitle(a, b string) bool {
	return FoldTitle(a) == FoldTitle(b)
}

// FoldTitle returns the comparison key for a section title.
func FoldTitle(title string) string {
	return cases.Fold().String(strings.TrimSpace(title))
}

// FindSection returns the first section whose title matches title.
func FindSection(sections []Section, title string) (Section, bool) {
	key := FoldTitle(title)
	for _, section := range sections {
		if FoldTitle(section.Title) == key {
			return section, true
		}
	}
	return Section{}, false
}
