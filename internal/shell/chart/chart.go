// Package chart draws the assessment trend (crisp and fuzzy scores over time)
// as a PNG. It knows nothing about where the data came from: it takes a
// history.ChartSpec and a theme.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/news2/shell/internal/platform/settings"
	"github.com/news2/shell/internal/shell/history"
)

const (
	DefaultWidth  = 960
	DefaultHeight = 420

	CrispColor = "#2563eb"
	FuzzyColor = "#059669"
)

var ErrNoData = errors.New("chart: no data points")

// Palette is the set of theme-dependent colours.
type Palette struct {
	Background drawing.Color
	Text       drawing.Color
	Grid       drawing.Color
}

var (
	lightPalette = Palette{
		Background: drawing.ColorWhite,
		Text:       hex("#1f2937"),
		Grid:       drawing.Color{R: 0, G: 0, B: 0, A: 26},
	}
	darkPalette = Palette{
		Background: hex("#111827"),
		Text:       hex("#f9fafb"),
		Grid:       drawing.Color{R: 255, G: 255, B: 255, A: 26},
	}
)

// PaletteFor returns the colours used for theme.
func PaletteFor(theme settings.Theme) Palette {
	if theme == settings.ThemeDark {
		return darkPalette
	}
	return lightPalette
}

// Render writes spec as a PNG of the given size. A zero width or height
// falls back to the defaults.
func Render(w io.Writer, spec history.ChartSpec, theme settings.Theme, width, height int) error {
	n := len(spec.Times)
	if n == 0 {
		return ErrNoData
	}
	if len(spec.Crisp) != n || len(spec.Fuzzy) != n || len(spec.Labels) != n {
		return fmt.Errorf("chart: series lengths differ (times=%d crisp=%d fuzzy=%d labels=%d)",
			n, len(spec.Crisp), len(spec.Fuzzy), len(spec.Labels))
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	p := PaletteFor(theme)
	times, crisp, fuzzy := spec.Times, spec.Crisp, spec.Fuzzy
	minX, maxX := times[0], times[n-1]
	stretched := false

	// go-chart cannot draw a zero-width range; stretch a lone point into a
	// flat segment.
	if n == 1 || !maxX.After(minX) {
		maxX = minX.Add(time.Hour)
		times = []time.Time{minX, maxX}
		crisp = []float64{crisp[0], crisp[0]}
		fuzzy = []float64{fuzzy[0], fuzzy[0]}
		stretched = true
	}

	// The x range is taken from the ticks, so they must span minX..maxX.
	ticks := xTicks(spec)
	if stretched {
		ticks = append(ticks, gochart.Tick{Value: gochart.TimeToFloat64(maxX)})
	}

	yMax := spec.YMax
	if yMax <= spec.YMin {
		yMax = spec.YMin + 1
	}

	ch := gochart.Chart{
		Width:      width,
		Height:     height,
		Background: gochart.Style{FillColor: p.Background, Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 12}},
		Canvas:     gochart.Style{FillColor: p.Background},
		XAxis: gochart.XAxis{
			Style:          gochart.Style{FontColor: p.Text, StrokeColor: p.Grid},
			Ticks:          ticks,
			Range:          &gochart.ContinuousRange{Min: gochart.TimeToFloat64(minX), Max: gochart.TimeToFloat64(maxX)},
			GridMajorStyle: gochart.Style{StrokeColor: p.Grid, StrokeWidth: 1},
		},
		YAxis: gochart.YAxis{
			Name:           "Score",
			NameStyle:      gochart.Style{FontColor: p.Text},
			Style:          gochart.Style{FontColor: p.Text, StrokeColor: p.Grid},
			Range:          &gochart.ContinuousRange{Min: spec.YMin, Max: yMax},
			GridMajorStyle: gochart.Style{StrokeColor: p.Grid, StrokeWidth: 1},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{Name: "Crisp NEWS-2", XValues: times, YValues: crisp, Style: lineStyle(CrispColor)},
			gochart.TimeSeries{Name: "Fuzzy NEWS-2", XValues: times, YValues: fuzzy, Style: lineStyle(FuzzyColor)},
		},
	}
	ch.Elements = []gochart.Renderable{gochart.LegendThin(&ch, gochart.Style{
		FillColor:   p.Background,
		FontColor:   p.Text,
		StrokeColor: p.Grid,
	})}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// xTicks labels each distinct timestamp once.
func xTicks(spec history.ChartSpec) []gochart.Tick {
	ticks := make([]gochart.Tick, 0, len(spec.Times))
	for i, t := range spec.Times {
		v := gochart.TimeToFloat64(t)
		if len(ticks) > 0 && ticks[len(ticks)-1].Value == v {
			continue
		}
		ticks = append(ticks, gochart.Tick{Value: v, Label: spec.Labels[i]})
	}
	return ticks
}

func lineStyle(color string) gochart.Style {
	c := hex(color)
	return gochart.Style{
		StrokeColor: c,
		StrokeWidth: 2,
		DotColor:    c,
		DotWidth:    3,
	}
}

func hex(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}
