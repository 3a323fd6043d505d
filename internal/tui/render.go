package tui

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/crestle/internal/raster"
)

// alphaCutoff hides pixels that are mostly transparent after scaling.
const alphaCutoff = 128

// Render draws img in at most cols×rows terminal cells using half blocks,
// two pixels per cell. cols or rows ≤ 0 keeps the natural size.
func Render(img *image.NRGBA, cols, rows int) string {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return ""
	}
	if cols > 0 && rows > 0 {
		s := math.Min(float64(cols)/float64(w), float64(rows*2)/float64(h))
		w = max(1, int(math.Round(float64(w)*s)))
		h = max(1, int(math.Round(float64(h)*s)))
	}
	buf := raster.Contain(img, w, h)

	var sb strings.Builder
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x++ {
			top := buf.NRGBAAt(x, y)
			var bot color.NRGBA
			if y+1 < h {
				bot = buf.NRGBAAt(x, y+1)
			}
			sb.WriteString(cell(top, bot))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func cell(top, bot color.NRGBA) string {
	showTop, showBot := top.A >= alphaCutoff, bot.A >= alphaCutoff
	switch {
	case showTop && showBot:
		return lipgloss.NewStyle().Foreground(hex(top)).Background(hex(bot)).Render("▀")
	case showTop:
		return lipgloss.NewStyle().Foreground(hex(top)).Render("▀")
	case showBot:
		return lipgloss.NewStyle().Foreground(hex(bot)).Render("▄")
	}
	return " "
}

func hex(c color.NRGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
