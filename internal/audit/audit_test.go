package audit

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/robalobadob/crestle/internal/catalog"
	"github.com/robalobadob/crestle/internal/raster"
)

type mapLoader map[string]image.Image

func (m mapLoader) Load(_ context.Context, ref string) (image.Image, error) {
	if img, ok := m[ref]; ok {
		return img, nil
	}
	return nil, errors.New("no such crest")
}

func solid(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func gradient() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := uint8(x * 8)
			if y >= 16 {
				v = 255 - v
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, 255 - v, 255})
		}
	}
	return img
}

func TestRun(t *testing.T) {
	const doc = `{"items":[
	 {"country":"x","league":"a","name":"Red One","crest":"red1.png"},
	 {"country":"x","league":"a","name":"Red Two","crest":"red2.png"},
	 {"country":"x","league":"a","name":"Ghost","crest":"ghost.png"},
	 {"country":"x","league":"a","name":"Lost","crest":"lost.png"},
	 {"country":"x","league":"a","name":"Fade","crest":"fade.png"},
	 {"country":"x","league":"b","name":"Red Three","crest":"red1.png"}
	]}`
	cat, err := catalog.Parse(strings.NewReader(doc), "")
	if err != nil {
		t.Fatal(err)
	}
	red := color.NRGBA{200, 10, 10, 255}
	loader := mapLoader{
		"red1.png":  solid(red),
		"red2.png":  solid(red),
		"ghost.png": solid(color.NRGBA{}),
		"fade.png":  gradient(),
	}

	r := Run(context.Background(), cat, raster.NewCache(loader), Options{Canvas: 16})
	if r.Checked != 6 {
		t.Errorf("checked = %d, want 6", r.Checked)
	}

	want := map[Kind]int{KindLoadFailed: 1, KindTransparent: 1, KindNearDuplicate: 1, KindAmbiguous: 1}
	for k, n := range want {
		if got := r.Count(k); got != n {
			t.Errorf("%s findings = %d, want %d (%+v)", k, got, n, r.Findings)
		}
	}

	for _, f := range r.Findings {
		switch f.Kind {
		case KindLoadFailed:
			if f.EntityID != "x-a-lost" {
				t.Errorf("load failure on %s", f.EntityID)
			}
		case KindTransparent:
			if f.EntityID != "x-a-ghost" {
				t.Errorf("transparent %s", f.EntityID)
			}
		case KindNearDuplicate, KindAmbiguous:
			if f.EntityID != "x-a-red-one" || f.Other != "x-a-red-two" || f.League != "x/a" {
				t.Errorf("pair finding = %+v", f)
			}
		}
	}

	// Findings are sorted by kind.
	for i := 1; i < len(r.Findings); i++ {
		if r.Findings[i-1].Kind > r.Findings[i].Kind {
			t.Errorf("findings not sorted: %+v", r.Findings)
			break
		}
	}
}
