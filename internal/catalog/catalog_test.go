package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `{"items": [
	{"country": "Argentina", "league": "primeradivision", "name": "Boca Juniors", "crest": "./png/boca.png"},
	{"country": "argentina", "league": "primeradivision", "name": "River Plate", "crest": "./png/river.png"},
	{"country": "argentina", "league": "nacional_b", "name": "Almirante Brown", "crest": "https://example.org/ab.png"},
	{"country": "spain", "league": "laliga", "name": "Real  Betis", "crest": "/abs/betis.png"},
	{"country": "spain", "league": "laliga", "name": "", "crest": "./png/none.png"},
	{"country": "argentina", "league": "primeradivision", "name": "Boca Juniors", "crest": "./png/dup.png"}
]}`

func mustParse(t *testing.T) *Catalog {
	t.Helper()
	c, err := Parse(strings.NewReader(sample), "/data")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c
}

func TestParse(t *testing.T) {
	c := mustParse(t)
	if c.Len() != 4 {
		t.Fatalf("Len = %d, want 4 (blank name and duplicate skipped)", c.Len())
	}

	boca, ok := c.ByID("argentina-primeradivision-boca-juniors")
	if !ok {
		t.Fatal("boca not found by id")
	}
	if boca.Crest != filepath.Join("/data", "png", "boca.png") {
		t.Errorf("crest = %q", boca.Crest)
	}
	if boca.LeagueKey() != "argentina/primeradivision" {
		t.Errorf("league key = %q", boca.LeagueKey())
	}

	betis, ok := c.ByID("spain-laliga-real-betis")
	if !ok {
		t.Fatal("whitespace runs should collapse to a single dash")
	}
	if betis.Crest != "/abs/betis.png" {
		t.Errorf("absolute crest rewritten: %q", betis.Crest)
	}
	if ab, _ := c.ByID("argentina-nacional_b-almirante-brown"); ab.Crest != "https://example.org/ab.png" {
		t.Errorf("url crest rewritten: %q", ab.Crest)
	}
}

func TestParseNoData(t *testing.T) {
	for name, body := range map[string]string{
		"malformed": `{"items": [`,
		"empty":     `{"items": []}`,
		"no items":  `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(body), ""); !errors.Is(err, ErrNoData) {
				t.Errorf("err = %v, want ErrNoData", err)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrNoData) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestLoadResolvesAgainstFileDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	river, _ := c.ByID("argentina-primeradivision-river-plate")
	if river.Crest != filepath.Join(dir, "png", "river.png") {
		t.Errorf("crest = %q", river.Crest)
	}
}

func TestPools(t *testing.T) {
	c := mustParse(t)

	leagues := c.Leagues()
	if len(leagues) != 3 || leagues[0].Key != "argentina/nacional_b" || leagues[1].Teams != 2 {
		t.Errorf("leagues = %+v", leagues)
	}
	if leagues[1].Label != "Argentina — Primeradivision" {
		t.Errorf("label = %q", leagues[1].Label)
	}

	if got := len(c.TargetPool("argentina/primeradivision")); got != 2 {
		t.Errorf("target pool = %d", got)
	}
	// guess pool spans the whole country
	if got := len(c.GuessPool("argentina/primeradivision")); got != 3 {
		t.Errorf("guess pool = %d", got)
	}
	if c.GuessPool("nowhere/none") != nil {
		t.Error("unknown league should have no guess pool")
	}
}

func TestFindByName(t *testing.T) {
	c := mustParse(t)
	pool := c.GuessPool("argentina/primeradivision")

	tests := []struct {
		query, wantID string
		ok            bool
	}{
		{"Boca Juniors", "argentina-primeradivision-boca-juniors", true},
		{"  river plate ", "argentina-primeradivision-river-plate", true},
		{"alm", "argentina-nacional_b-almirante-brown", true},
		{"plate", "argentina-primeradivision-river-plate", true},
		{"betis", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := FindByName(pool, tt.query, nil)
		if ok != tt.ok || got.ID != tt.wantID {
			t.Errorf("FindByName(%q) = %q, %v", tt.query, got.ID, ok)
		}
	}

	// exact beats prefix even when a prefix match comes first
	pool = []Team{{ID: "a", Name: "River Plate II"}, {ID: "b", Name: "River Plate"}}
	if got, _ := FindByName(pool, "river plate", nil); got.ID != "b" {
		t.Errorf("exact match lost to prefix: %q", got.ID)
	}

	format := Formatter(NameCountry)
	if got, ok := FindByName(c.GuessPool("spain/laliga"), "real  betis (spain)", format); !ok || got.ID != "spain-laliga-real-betis" {
		t.Errorf("formatted lookup = %q, %v", got.ID, ok)
	}
}

func TestFormatting(t *testing.T) {
	if got := Pretty("primera_division-b"); got != "Primera Division B" {
		t.Errorf("Pretty = %q", got)
	}
	if got := Pretty("ñandú"); got != "Ñandú" {
		t.Errorf("Pretty non-ascii = %q", got)
	}
	if got := ShareLabel("argentina/primeradivision"); got != "argentina · primeradivision" {
		t.Errorf("ShareLabel = %q", got)
	}
	team := Team{Name: "Boca Juniors", Country: "argentina"}
	if got := Formatter(NameCountry)(team); got != "Boca Juniors (ARGENTINA)" {
		t.Errorf("country style = %q", got)
	}
	if got := Formatter(NamePlain)(team); got != "Boca Juniors" {
		t.Errorf("plain style = %q", got)
	}
}
