package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pretty turns "primera_division" or "boca-juniors" into "Primera Division".
func Pretty(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// LeagueLabel renders a league key for menus: "Argentina — Primeradivision".
func LeagueLabel(key string) string {
	country, league, _ := strings.Cut(key, "/")
	return Pretty(country) + " — " + Pretty(league)
}

// ShareLabel renders a league key for share text: "argentina · primeradivision".
func ShareLabel(key string) string {
	if key == "" {
		return "Liga"
	}
	return strings.Replace(key, "/", " · ", 1)
}

// NameStyle selects how team names are displayed.
type NameStyle string

const (
	NamePlain   NameStyle = "plain"   // "Boca Juniors"
	NameCountry NameStyle = "country" // "Boca Juniors (ARGENTINA)"
)

// Formatter returns the display-name function for a style.
func Formatter(style NameStyle) func(Team) string {
	if style == NameCountry {
		return func(t Team) string {
			if t.Country == "" {
				return t.Name
			}
			return t.Name + " (" + strings.ToUpper(t.Country) + ")"
		}
	}
	return func(t Team) string { return t.Name }
}
