// internal/catalog/catalog.go
//
// Crest catalog: the pool of guessable teams, partitioned by league.
//
// Source format (catalog.json):
//   {"items": [{"country": "argentina", "league": "primeradivision",
//               "name": "Boca Juniors", "crest": "./escudoteca/.../boca.png"}]}
//
// Derived keys:
//   - Team ID:    "<country>-<league>-<name lowercased, whitespace → '-'>"
//   - League key: "<country>/<league>"
//
// Pools:
//   - Target pool for a league: the league's teams, in file order.
//   - Guess pool for a league: every team from the same country.
//
// Relative crest paths are resolved against the catalog file's directory.
// An empty, malformed or unreadable catalog yields ErrNoData.

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrNoData means the catalog could not provide any team.
var ErrNoData = errors.New("catalog: no data")

var whitespace = regexp.MustCompile(`\s+`)

// item is one raw catalog.json entry.
type item struct {
	Country string `json:"country"`
	League  string `json:"league"`
	Name    string `json:"name"`
	Crest   string `json:"crest"`
}

// Team is a selectable entity.
type Team struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Crest   string `json:"-"`
	Country string `json:"country"`
	League  string `json:"league"`
}

// LeagueKey returns "<country>/<league>".
func (t Team) LeagueKey() string { return t.Country + "/" + t.League }

// League summarises one group for menus.
type League struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Teams int    `json:"teams"`
}

// Catalog is immutable after Load/Parse and safe for concurrent reads.
type Catalog struct {
	teams   []Team
	byID    map[string]Team
	leagues map[string][]Team
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path) // #nosec G304 - operator-provided catalog path
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	defer f.Close()
	return Parse(f, filepath.Dir(path))
}

// Parse decodes catalog JSON. baseDir resolves relative crest paths.
func Parse(r io.Reader, baseDir string) (*Catalog, error) {
	var doc struct {
		Items []item `json:"items"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	c := &Catalog{byID: make(map[string]Team), leagues: make(map[string][]Team)}
	for _, it := range doc.Items {
		country := strings.ToLower(strings.TrimSpace(it.Country))
		league := strings.ToLower(strings.TrimSpace(it.League))
		name := strings.TrimSpace(it.Name)
		if country == "" || league == "" || name == "" || it.Crest == "" {
			continue
		}
		t := Team{
			ID:      country + "-" + league + "-" + whitespace.ReplaceAllString(strings.ToLower(name), "-"),
			Name:    name,
			Crest:   resolveRef(it.Crest, baseDir),
			Country: country,
			League:  league,
		}
		if _, dup := c.byID[t.ID]; dup {
			continue
		}
		c.teams = append(c.teams, t)
		c.byID[t.ID] = t
		c.leagues[t.LeagueKey()] = append(c.leagues[t.LeagueKey()], t)
	}
	if len(c.teams) == 0 {
		return nil, fmt.Errorf("%w: catalog has no usable items", ErrNoData)
	}
	return c, nil
}

// resolveRef leaves URLs and absolute paths alone.
func resolveRef(ref, baseDir string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") ||
		filepath.IsAbs(ref) || baseDir == "" {
		return ref
	}
	return filepath.Join(baseDir, filepath.FromSlash(ref))
}

// Len is the total number of teams.
func (c *Catalog) Len() int { return len(c.teams) }

// Teams returns every team in file order.
func (c *Catalog) Teams() []Team { return c.teams }

// ByID looks up a team.
func (c *Catalog) ByID(id string) (Team, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Leagues lists non-empty leagues sorted by key.
func (c *Catalog) Leagues() []League {
	out := make([]League, 0, len(c.leagues))
	for k, teams := range c.leagues {
		out = append(out, League{Key: k, Label: LeagueLabel(k), Teams: len(teams)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TargetPool returns the teams a league's puzzle can pick from.
func (c *Catalog) TargetPool(key string) []Team { return c.leagues[key] }

// GuessPool returns every team sharing the league's country.
func (c *Catalog) GuessPool(key string) []Team {
	pool := c.leagues[key]
	if len(pool) == 0 {
		return nil
	}
	country := pool[0].Country
	var out []Team
	for _, t := range c.teams {
		if t.Country == country {
			out = append(out, t)
		}
	}
	return out
}

// FindByName resolves user input against a pool: exact match first, then
// prefix, then substring, all case-insensitive. name picks the string each
// team is matched on; nil uses Team.Name.
func FindByName(pool []Team, query string, name func(Team) string) (Team, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Team{}, false
	}
	if name == nil {
		name = func(t Team) string { return t.Name }
	}
	matchers := []func(string) bool{
		func(s string) bool { return s == q },
		func(s string) bool { return strings.HasPrefix(s, q) },
		func(s string) bool { return strings.Contains(s, q) },
	}
	for _, match := range matchers {
		for _, t := range pool {
			if match(strings.ToLower(name(t))) {
				return t, true
			}
		}
	}
	return Team{}, false
}
