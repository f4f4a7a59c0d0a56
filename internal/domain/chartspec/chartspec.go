// Package chartspec assembles the rolling-window shot chart: a static court
// layer, a shot scatter layer filtered by player and game window, and the two
// interactive parameters that drive the filter.
//
// The result is plain data. Rendering, and stepping the window over time, is
// left to whoever consumes the Spec.
package chartspec

import (
	"github.com/okian/shotchart/internal/domain/court"
	"github.com/okian/shotchart/internal/domain/shot"
)

// Fixed chart parameters.
const (
	WindowSize        = 40
	PlayerParamName   = "player_sel"
	WindowParamName   = "gstart"
	PlaceholderPlayer = "No data"
	DefaultTitle      = "Rolling 40-game Shot Chart"
	DefaultWidth      = 700
	DefaultHeight     = 400
)

// Spec is the declarative chart description.
type Spec struct {
	Title      string      `json:"title"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Court      CourtLayer  `json:"court"`
	Shots      ShotLayer   `json:"shots"`
	Player     PlayerParam `json:"player_param"`
	Window     WindowParam `json:"window_param"`
	WindowSize int         `json:"window_size"`
	SliderMax  int         `json:"slider_max"`
}

// Scale is a fixed linear domain.
type Scale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Encoding maps a data field onto a screen axis.
type Encoding struct {
	Field string `json:"field"`
	Scale Scale  `json:"scale"`
}

// CourtLayer draws the court as thin lines without axes.
type CourtLayer struct {
	Segments    []court.Segment `json:"segments"`
	X           Encoding        `json:"x"`
	Y           Encoding        `json:"y"`
	Color       string          `json:"color"`
	StrokeWidth float64         `json:"stroke_width"`
}

// ColorScale maps shot results to colours.
type ColorScale struct {
	Field  string        `json:"field"`
	Domain []shot.Result `json:"domain"`
	Range  []string      `json:"range"`
	Title  string        `json:"title"`
}

// TooltipField is one field shown on hover.
type TooltipField struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

// ShotLayer is the filtered scatter of shots.
type ShotLayer struct {
	Rows    []shot.Event   `json:"rows"`
	X       Encoding       `json:"x"`
	Y       Encoding       `json:"y"`
	Size    int            `json:"size"`
	Color   ColorScale     `json:"color"`
	Tooltip []TooltipField `json:"tooltip"`
	Filter  Filter         `json:"filter"`
}

// PlayerParam is the player selection bound to a dropdown.
type PlayerParam struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Options []string `json:"options"`
	Default string   `json:"default"`
}

// WindowParam is the window start bound to a slider.
type WindowParam struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Step    int    `json:"step"`
	Default int    `json:"default"`
}

// Filter keeps a shot iff its player equals the selected player and its game
// number lies in [start, start+Width).
type Filter struct {
	PlayerField string `json:"player_field"`
	PlayerParam string `json:"player_param"`
	GameField   string `json:"game_field"`
	StartParam  string `json:"start_param"`
	Width       int    `json:"width"`
}

// Visible evaluates the filter for one shot given parameter values.
func (f Filter) Visible(e shot.Event, player string, start int) bool {
	if e.Player != player || !e.HasGameNumber() {
		return false
	}
	return e.GameNumber >= start && e.GameNumber < start+f.Width
}

// SliderMax returns the largest useful window start for a table: the global
// maximum game number minus WindowSize-1, never below 1.
func SliderMax(t shot.Table) int {
	return max(1, t.MaxGameNumber()-WindowSize+1)
}

type settings struct {
	title  string
	width  int
	height int
}

// Option customizes presentation values of the built Spec.
type Option func(*settings)

// WithTitle overrides the chart title.
func WithTitle(title string) Option {
	return func(s *settings) {
		if title != "" {
			s.title = title
		}
	}
}

// WithSize overrides the chart size in pixels.
func WithSize(width, height int) Option {
	return func(s *settings) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// Build assembles a Spec from a table with derived game numbers.
// It never fails: a table without players gets a placeholder player and one
// placeholder row that no window ever shows.
func Build(t shot.Table, segments []court.Segment, opts ...Option) Spec {
	cfg := settings{title: DefaultTitle, width: DefaultWidth, height: DefaultHeight}
	for _, opt := range opts {
		opt(&cfg)
	}

	rows := make([]shot.Event, 0, len(t.Events)+1)
	for _, e := range t.Events {
		if e.Renderable() {
			rows = append(rows, e)
		}
	}

	players := t.Players()
	if len(players) == 0 {
		players = []string{PlaceholderPlayer}
		rows = append(rows, placeholderRow())
	}

	sliderMax := SliderMax(t)

	return Spec{
		Title:  cfg.title,
		Width:  cfg.width,
		Height: cfg.height,
		Court: CourtLayer{
			Segments:    segments,
			X:           Encoding{Field: "x", Scale: Scale{Min: court.XMin, Max: court.XMax}},
			Y:           Encoding{Field: "y", Scale: Scale{Min: court.YMin, Max: court.YMax}},
			Color:       "black",
			StrokeWidth: 1,
		},
		Shots: ShotLayer{
			Rows: rows,
			// Stored x runs away from the baseline and stored y along it, so the
			// axes are swapped to draw the half court upright.
			X:    Encoding{Field: shot.ColY, Scale: Scale{Min: court.XMin, Max: court.XMax}},
			Y:    Encoding{Field: shot.ColX, Scale: Scale{Min: court.YMin, Max: court.YMax}},
			Size: 60,
			Color: ColorScale{
				Field:  shot.ColResult,
				Domain: []shot.Result{shot.Made, shot.Missed},
				Range:  []string{"green", "red"},
				Title:  "Result",
			},
			Tooltip: []TooltipField{
				{Field: shot.ColPlayer, Type: "nominal"},
				{Field: shot.ColGameID, Type: "nominal"},
				{Field: shot.ColResult, Type: "nominal"},
				{Field: shot.ColGameNumber, Type: "quantitative"},
				{Field: shot.ColTime, Type: "temporal"},
			},
			Filter: Filter{
				PlayerField: shot.ColPlayer,
				PlayerParam: PlayerParamName,
				GameField:   shot.ColGameNumber,
				StartParam:  WindowParamName,
				Width:       WindowSize,
			},
		},
		Player: PlayerParam{
			Name:    PlayerParamName,
			Label:   "Player: ",
			Options: players,
			Default: players[0],
		},
		Window: WindowParam{
			Name:    WindowParamName,
			Label:   "Start game #: ",
			Min:     1,
			Max:     sliderMax,
			Step:    1,
			Default: 1,
		},
		WindowSize: WindowSize,
		SliderMax:  sliderMax,
	}
}

// Visible returns the rows shown for a player and window start.
func (s Spec) Visible(player string, start int) []shot.Event {
	var out []shot.Event
	for _, e := range s.Shots.Rows {
		if s.Shots.Filter.Visible(e, player, start) {
			out = append(out, e)
		}
	}
	return out
}

func placeholderRow() shot.Event {
	return shot.Event{
		Player: PlaceholderPlayer,
		X:      (court.YMin + court.YMax) / 2,
		Y:      (court.XMin + court.XMax) / 2,
		Result: shot.Missed,
	}
}
