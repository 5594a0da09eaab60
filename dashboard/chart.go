// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dashboard

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Rect is one bar in SVG user units.
type Rect struct {
	X, Y, W, H float64
	Series     string
	Value      string
}

// Tick is a horizontal grid line with its label.
type Tick struct {
	Y     float64
	Label string
}

// Label is a category name under a bar group.
type Label struct {
	X    float64
	Text string
}

// Bars is the geometry of the grouped voted/pending chart.
type Bars struct {
	Width, Height float64
	Baseline      float64
	Rects         []Rect
	Ticks         []Tick
	Labels        []Label
}

const (
	barMarginLeft   = 56.0
	barMarginBottom = 32.0
	barMarginTop    = 12.0
)

// BarChart lays out one voted and one pending bar per group.
func BarChart(groups []Group, width, height float64) Bars {
	b := Bars{Width: width, Height: height, Baseline: height - barMarginBottom}
	plotH := b.Baseline - barMarginTop
	plotW := width - barMarginLeft

	peak := 0
	for _, g := range groups {
		peak = max(peak, g.Voted, g.Pending)
	}
	top, step := niceScale(peak)

	for v := 0.0; v <= top+step/2; v += step {
		b.Ticks = append(b.Ticks, Tick{
			Y:     b.Baseline - v/top*plotH,
			Label: humanize.Comma(int64(v)),
		})
	}

	if len(groups) == 0 {
		return b
	}
	slot := plotW / float64(len(groups))
	barW := slot * 0.35
	for i, g := range groups {
		x0 := barMarginLeft + float64(i)*slot + slot*0.15
		for j, bar := range []struct {
			series string
			value  int
		}{{"voted", g.Voted}, {"pending", g.Pending}} {
			h := float64(bar.value) / top * plotH
			b.Rects = append(b.Rects, Rect{
				X:      x0 + float64(j)*barW,
				Y:      b.Baseline - h,
				W:      barW,
				H:      h,
				Series: bar.series,
				Value:  humanize.Comma(int64(bar.value)),
			})
		}
		b.Labels = append(b.Labels, Label{X: x0 + barW, Text: g.Label})
	}
	return b
}

// niceScale rounds peak up to a 1, 2 or 5 multiple split into about five ticks.
func niceScale(peak int) (top, step float64) {
	if peak <= 0 {
		return 1, 1
	}
	raw := float64(peak) / 5
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch norm := raw / mag; {
	case norm <= 1:
		step = mag
	case norm <= 2:
		step = 2 * mag
	case norm <= 5:
		step = 5 * mag
	default:
		step = 10 * mag
	}
	step = math.Max(step, 1)
	top = math.Ceil(float64(peak)/step) * step
	return top, step
}

// Arc is one slice of the doughnut as an SVG path.
type Arc struct {
	Series  string
	Path    string
	Percent string
}

// Doughnut returns voted and pending slices of a ring centred at (cx, cy).
// Zero-valued slices are omitted.
func Doughnut(voted, pending int, cx, cy, outer, inner float64) []Arc {
	total := float64(voted + pending)
	if total <= 0 {
		return nil
	}

	var arcs []Arc
	start := -math.Pi / 2
	for _, s := range []struct {
		series string
		value  int
	}{{"voted", voted}, {"pending", pending}} {
		if s.value <= 0 {
			continue
		}
		frac := float64(s.value) / total
		end := start + frac*2*math.Pi
		arcs = append(arcs, Arc{
			Series:  s.series,
			Path:    ringPath(cx, cy, outer, inner, start, end),
			Percent: fmt.Sprintf("%.1f", frac*100),
		})
		start = end
	}
	return arcs
}

func ringPath(cx, cy, outer, inner, a0, a1 float64) string {
	// A full circle cannot be drawn as one arc; stop just short of it.
	if a1-a0 >= 2*math.Pi-1e-9 {
		a1 = a0 + 2*math.Pi - 1e-4
	}
	large := 0
	if a1-a0 > math.Pi {
		large = 1
	}
	pt := func(r, a float64) (float64, float64) {
		return cx + r*math.Cos(a), cy + r*math.Sin(a)
	}
	ox0, oy0 := pt(outer, a0)
	ox1, oy1 := pt(outer, a1)
	ix1, iy1 := pt(inner, a1)
	ix0, iy0 := pt(inner, a0)
	return fmt.Sprintf("M%.2f %.2f A%.2f %.2f 0 %d 1 %.2f %.2f L%.2f %.2f A%.2f %.2f 0 %d 0 %.2f %.2f Z",
		ox0, oy0, outer, outer, large, ox1, oy1,
		ix1, iy1, inner, inner, large, ix0, iy0)
}
