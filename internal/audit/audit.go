// Package audit checks a crest catalog for puzzles that cannot be played
// fairly: crests that fail to load, crests with no opaque pixels (never
// winnable), and crest pairs in one league that look alike or that would
// score a win for the wrong team.
package audit

import (
	"context"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/corona10/goimagehash"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crestle/internal/catalog"
	"github.com/robalobadob/crestle/internal/raster"
	"github.com/robalobadob/crestle/internal/reveal"
	"github.com/robalobadob/crestle/internal/similarity"
)

// Kind classifies a finding.
type Kind string

const (
	KindLoadFailed    Kind = "load_failed"
	KindTransparent   Kind = "transparent"
	KindNearDuplicate Kind = "near_duplicate"
	KindAmbiguous     Kind = "ambiguous"
)

// MaxHashDistance is the perceptual hash distance at or below which two
// crests count as near-duplicates.
const MaxHashDistance = 4

// Finding is one problem in the catalog.
type Finding struct {
	Kind     Kind   `json:"kind"`
	League   string `json:"league"`
	EntityID string `json:"teamId"`
	Other    string `json:"otherId,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Report is the audit result.
type Report struct {
	Checked  int       `json:"checked"`
	Findings []Finding `json:"findings"`
}

// Count returns the number of findings of kind k.
func (r Report) Count(k Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == k {
			n++
		}
	}
	return n
}

// Options tunes an audit run. Zero values take defaults.
type Options struct {
	Canvas     int // square canvas for pixel checks, default 128
	Workers    int
	Similarity similarity.Config
	Overrides  similarity.Overrides
}

type crest struct {
	team    catalog.Team
	buf     *image.NRGBA
	session *reveal.Session
	hash    *goimagehash.ImageHash
}

// Run audits every league in the catalog.
func Run(ctx context.Context, cat *catalog.Catalog, cache *raster.Cache, opts Options) Report {
	if opts.Canvas <= 0 {
		opts.Canvas = 128
	}
	if opts.Similarity.Mode == "" {
		opts.Similarity = similarity.Default()
	}

	entries := make([]raster.Entry, 0, cat.Len())
	for _, t := range cat.Teams() {
		entries = append(entries, raster.Entry{EntityID: t.ID, Ref: t.Crest})
	}
	cache.Precache(ctx, entries, opts.Workers)

	var report Report
	for _, lg := range cat.Leagues() {
		report.Findings = append(report.Findings, auditLeague(ctx, cat.TargetPool(lg.Key), lg.Key, cache, opts)...)
		report.Checked += lg.Teams
	}

	sort.Slice(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.League != b.League {
			return a.League < b.League
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.Other < b.Other
	})
	log.Info().Int("checked", report.Checked).Int("findings", len(report.Findings)).Msg("audit complete")
	return report
}

func auditLeague(ctx context.Context, pool []catalog.Team, league string, cache *raster.Cache, opts Options) []Finding {
	var (
		out    []Finding
		crests []*crest
	)
	for _, t := range pool {
		img, err := cache.Get(ctx, raster.Entry{EntityID: t.ID, Ref: t.Crest})
		if err != nil {
			out = append(out, Finding{Kind: KindLoadFailed, League: league, EntityID: t.ID, Detail: err.Error()})
			continue
		}
		buf := raster.Contain(img, opts.Canvas, opts.Canvas)
		cfg := similarity.ResolveConfig(opts.Similarity, opts.Overrides, t.ID)
		s := reveal.NewSession(t.ID, buf, cfg)
		if s.Opaque() == 0 {
			out = append(out, Finding{Kind: KindTransparent, League: league, EntityID: t.ID})
			continue
		}
		c := &crest{team: t, buf: buf, session: s}
		if h, err := goimagehash.PerceptionHash(img); err == nil {
			c.hash = h
		} else {
			log.Debug().Err(err).Str("team", t.ID).Msg("perception hash")
		}
		crests = append(crests, c)
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := range crests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			found := comparePairs(crests, i, league)
			mu.Lock()
			out = append(out, found...)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	return out
}

// comparePairs checks crests[i] as the target against every later crest.
func comparePairs(crests []*crest, i int, league string) []Finding {
	var out []Finding
	a := crests[i]
	for _, b := range crests[i+1:] {
		if a.hash != nil && b.hash != nil {
			if d, err := a.hash.Distance(b.hash); err == nil && d <= MaxHashDistance {
				out = append(out, Finding{
					Kind: KindNearDuplicate, League: league, EntityID: a.team.ID, Other: b.team.ID,
					Detail: fmt.Sprintf("phash distance %d", d),
				})
			}
		}
		if pct, ok := winsAgainst(a, b); ok {
			out = append(out, Finding{
				Kind: KindAmbiguous, League: league, EntityID: a.team.ID, Other: b.team.ID,
				Detail: fmt.Sprintf("guess scores %.2f%%", pct),
			})
		} else if pct, ok := winsAgainst(b, a); ok {
			out = append(out, Finding{
				Kind: KindAmbiguous, League: league, EntityID: b.team.ID, Other: a.team.ID,
				Detail: fmt.Sprintf("guess scores %.2f%%", pct),
			})
		}
	}
	return out
}

// winsAgainst reports whether guessing other wins the puzzle for target.
func winsAgainst(target, other *crest) (float64, bool) {
	pct, err := target.session.ApplyGuess(other.buf, target.session.NewMask())
	if err != nil {
		return 0, false
	}
	return pct, reveal.IsWin(pct)
}
