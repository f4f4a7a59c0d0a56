// Package court builds the static half-court line geometry in the normalized
// display frame (x in [0,100] along the baseline, y in [4,50] away from it).
package court

import (
	"math"
	"slices"
	"sync"
)

// Display domain of the court frame.
const (
	XMin = 0.0
	XMax = 100.0
	YMin = 4.0
	YMax = 50.0
)

// Arc sampling densities.
const (
	restrictedSamples = 80
	freeThrowSamples  = 80
	threeArcSamples   = 120
)

// Segment group names.
const (
	Baseline      = "baseline"
	LeftSideline  = "left_sideline"
	RightSideline = "right_sideline"
	OuterPaint    = "outer_paint"
	InnerPaint    = "inner_paint"
	Restricted    = "restricted"
	FreeThrowTop  = "ft_top"
	CornerLeft    = "corner_left"
	CornerRight   = "corner_right"
	ThreeArc      = "three_arc"
)

// Point is a vertex in court coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a named polyline.
type Segment struct {
	Name   string  `json:"group"`
	Points []Point `json:"points"`
}

// Row is one vertex tagged with its segment, the flat shape line marks consume.
type Row struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Group string  `json:"group"`
}

// Build computes the ten court segments.
func Build() []Segment {
	return []Segment{
		line(Baseline, Point{0, 4}, Point{100, 4}),
		line(LeftSideline, Point{0, 4}, Point{0, 50}),
		line(RightSideline, Point{100, 4}, Point{100, 50}),
		rect(OuterPaint, 34, 66, 4, 25.3),
		rect(InnerPaint, 38, 62, 4, 25.3),
		arc(Restricted, 50, 4, 8, 4.5, 0, math.Pi, restrictedSamples),
		arc(FreeThrowTop, 50, 20, 12, 6.7, 0, math.Pi, freeThrowSamples),
		line(CornerLeft, Point{6, 4}, Point{6, 14.4}),
		line(CornerRight, Point{94, 4}, Point{94, 14.4}),
		arc(ThreeArc, 50, 4, 47.5, 26.65, degToRad(22), degToRad(158), threeArcSamples),
	}
}

var cached = sync.OnceValue(Build)

// Segments returns the court geometry. It is computed once per process; each
// caller receives its own copy, so the shared value is never mutated.
func Segments() []Segment {
	src := cached()
	out := make([]Segment, len(src))
	for i, s := range src {
		out[i] = Segment{Name: s.Name, Points: slices.Clone(s.Points)}
	}
	return out
}

// Flatten converts segments into tagged vertex rows, preserving order.
func Flatten(segments []Segment) []Row {
	n := 0
	for _, s := range segments {
		n += len(s.Points)
	}
	rows := make([]Row, 0, n)
	for _, s := range segments {
		for _, p := range s.Points {
			rows = append(rows, Row{X: p.X, Y: p.Y, Group: s.Name})
		}
	}
	return rows
}

func line(name string, a, b Point) Segment {
	return Segment{Name: name, Points: []Point{a, b}}
}

// rect returns a closed rectangle starting and ending at (x0, y0).
func rect(name string, x0, x1, y0, y1 float64) Segment {
	return Segment{Name: name, Points: []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

// arc samples an elliptical arc centred at (cx, cy) with radii (rx, ry) at n
// evenly spaced angles from t0 to t1 inclusive.
func arc(name string, cx, cy, rx, ry, t0, t1 float64, n int) Segment {
	pts := make([]Point, n)
	step := (t1 - t0) / float64(n-1)
	for i := range pts {
		t := t0 + float64(i)*step
		if i == n-1 {
			t = t1
		}
		pts[i] = Point{X: cx + rx*math.Cos(t), Y: cy + ry*math.Sin(t)}
	}
	return Segment{Name: name, Points: pts}
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
