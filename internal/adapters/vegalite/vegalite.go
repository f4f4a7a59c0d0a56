// Package vegalite renders a chartspec.Spec as a Vega-Lite v5 document that
// vega-embed can display directly.
package vegalite

import (
	"fmt"
	"time"

	"github.com/okian/shotchart/internal/domain/chartspec"
	"github.com/okian/shotchart/internal/domain/court"
	"github.com/okian/shotchart/internal/domain/shot"
)

// SchemaURL is the Vega-Lite schema the documents target.
const SchemaURL = "https://vega.github.io/schema/vega-lite/v5.json"

// Document is a Vega-Lite specification ready for JSON encoding.
type Document map[string]any

// Render converts spec into a layered Vega-Lite document.
func Render(spec chartspec.Spec) Document {
	return Document{
		"$schema": SchemaURL,
		"title":   spec.Title,
		"width":   spec.Width,
		"height":  spec.Height,
		"params": []any{
			playerParam(spec.Player),
			windowParam(spec.Window),
		},
		"layer": []any{
			courtLayer(spec.Court),
			shotLayer(spec.Shots),
		},
		"config": map[string]any{
			"view": map[string]any{"stroke": nil},
			"axis": map[string]any{
				"grid":   false,
				"domain": false,
				"ticks":  false,
				"labels": false,
			},
		},
	}
}

// PlayerExpr returns the Vega expression selecting the chosen player.
func PlayerExpr(f chartspec.Filter) string {
	return fmt.Sprintf("datum.%s == %s", f.PlayerField, f.PlayerParam)
}

// WindowExpr returns the Vega expression selecting the current game window.
func WindowExpr(f chartspec.Filter) string {
	return fmt.Sprintf("datum.%[1]s >= %[2]s && datum.%[1]s < %[2]s + %[3]d", f.GameField, f.StartParam, f.Width)
}

func playerParam(p chartspec.PlayerParam) map[string]any {
	return map[string]any{
		"name":  p.Name,
		"value": p.Default,
		"bind": map[string]any{
			"input":   "select",
			"options": p.Options,
			"name":    p.Label,
		},
	}
}

func windowParam(p chartspec.WindowParam) map[string]any {
	return map[string]any{
		"name":  p.Name,
		"value": p.Default,
		"bind": map[string]any{
			"input": "range",
			"min":   p.Min,
			"max":   p.Max,
			"step":  p.Step,
			"name":  p.Label,
		},
	}
}

func axisEncoding(e chartspec.Encoding) map[string]any {
	return map[string]any{
		"field": e.Field,
		"type":  "quantitative",
		"scale": map[string]any{"domain": []float64{e.Scale.Min, e.Scale.Max}},
		"axis":  nil,
	}
}

func courtLayer(l chartspec.CourtLayer) map[string]any {
	rows := court.Flatten(l.Segments)
	values := make([]map[string]any, len(rows))
	for i, r := range rows {
		// seq keeps each polyline in drawing order; line marks sort by x otherwise.
		values[i] = map[string]any{"x": r.X, "y": r.Y, "group": r.Group, "seq": i}
	}
	return map[string]any{
		"data": map[string]any{"values": values},
		"mark": map[string]any{
			"type":        "line",
			"color":       l.Color,
			"strokeWidth": l.StrokeWidth,
		},
		"encoding": map[string]any{
			"x":      axisEncoding(l.X),
			"y":      axisEncoding(l.Y),
			"detail": map[string]any{"field": "group", "type": "nominal"},
			"order":  map[string]any{"field": "seq", "type": "quantitative"},
		},
	}
}

func shotLayer(l chartspec.ShotLayer) map[string]any {
	values := make([]map[string]any, len(l.Rows))
	for i, e := range l.Rows {
		values[i] = shotRow(e)
	}

	tooltip := make([]map[string]any, len(l.Tooltip))
	for i, f := range l.Tooltip {
		tooltip[i] = map[string]any{"field": f.Field, "type": f.Type}
	}

	domain := make([]string, len(l.Color.Domain))
	for i, r := range l.Color.Domain {
		domain[i] = string(r)
	}

	return map[string]any{
		"data": map[string]any{"values": values},
		"mark": map[string]any{"type": "circle", "size": l.Size},
		"encoding": map[string]any{
			"x": axisEncoding(l.X),
			"y": axisEncoding(l.Y),
			"color": map[string]any{
				"field":  l.Color.Field,
				"type":   "nominal",
				"scale":  map[string]any{"domain": domain, "range": l.Color.Range},
				"legend": map[string]any{"title": l.Color.Title},
			},
			"tooltip": tooltip,
		},
		"transform": []any{
			map[string]any{"filter": PlayerExpr(l.Filter)},
			map[string]any{"filter": WindowExpr(l.Filter)},
		},
	}
}

// shotRow encodes absent timestamps and game numbers as null.
func shotRow(e shot.Event) map[string]any {
	row := map[string]any{
		shot.ColPlayer:     e.Player,
		shot.ColGameID:     e.GameID,
		shot.ColX:          e.X,
		shot.ColY:          e.Y,
		shot.ColResult:     string(e.Result),
		shot.ColSeason:     e.Season,
		shot.ColTime:       nil,
		shot.ColGameNumber: nil,
	}
	if e.HasTime() {
		row[shot.ColTime] = e.Time.UTC().Format(time.RFC3339Nano)
	}
	if e.HasGameNumber() {
		row[shot.ColGameNumber] = e.GameNumber
	}
	return row
}
