package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/shotchart/pkg/logger"
	"github.com/okian/shotchart/pkg/metrics"
)

// Animation speed bounds, as the delay between frames.
const (
	DefaultPlaySpeed = 400 * time.Millisecond
	MinPlaySpeed     = 100 * time.Millisecond
	MaxPlaySpeed     = 1500 * time.Millisecond
)

const (
	playWriteTimeout   = 10 * time.Second
	playMaxMessageSize = 512
)

// Client actions.
const (
	actionPlay  = "play"
	actionPause = "pause"
	actionStop  = "stop"
)

// Session states reported in every frame.
const (
	statePlaying = "playing"
	statePaused  = "paused"
	stateStopped = "stopped"
)

// playFrame is sent whenever the window start or the session state changes.
type playFrame struct {
	Session   string `json:"session"`
	GStart    int    `json:"gstart"`
	SliderMax int    `json:"slider_max"`
	State     string `json:"state"`
	SpeedMS   int64  `json:"speed_ms"`
}

// playCommand is a client message. Speed is in seconds; zero keeps the
// current speed.
type playCommand struct {
	Action string  `json:"action"`
	Speed  float64 `json:"speed"`
}

// ClampSpeed converts a client speed in seconds into a frame delay within
// [MinPlaySpeed, MaxPlaySpeed]. Non-positive or non-finite input yields def.
func ClampSpeed(seconds float64, def time.Duration) time.Duration {
	d := def
	if seconds > 0 && !math.IsInf(seconds, 0) {
		d = time.Duration(seconds * float64(time.Second))
	}
	return min(max(d, MinPlaySpeed), MaxPlaySpeed)
}

// PlayHandler drives the window start of a chart over a websocket, the way
// a play button on the slider would.
type PlayHandler struct {
	deps     Dependencies
	speed    time.Duration
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewPlayHandler creates a play handler with the given default frame delay.
func NewPlayHandler(deps Dependencies, speed time.Duration, log logger.Logger) *PlayHandler {
	return &PlayHandler{
		deps:     deps,
		speed:    ClampSpeed(0, speed),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		logger:   log,
	}
}

// HandlePlay handles GET /api/shots/play. The dataset query parameters
// match /api/shots/spec; errors are reported before the upgrade.
func (h *PlayHandler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	const op = "api.shots.play"

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, nil)
		return
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	res, err := h.deps.Chart(r.Context(), q)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.String("op", op), logger.Error(err))
		return
	}

	s := &playSession{
		id:     uuid.NewString(),
		conn:   conn,
		cursor: newCursor(res.Spec.SliderMax),
		speed:  h.speed,
	}
	s.logger = h.logger.With(logger.String("session", s.id))

	metrics.PlaySessionOpened()
	defer metrics.PlaySessionClosed()
	s.logger.Info(r.Context(), "play session opened",
		logger.String("origin", string(res.Origin)),
		logger.Int("slider_max", s.cursor.max))
	s.run(r.Context())
	s.logger.Info(r.Context(), "play session closed", logger.Int64("frames", s.frames))
}

// cursor walks 1..max and back again.
type cursor struct {
	pos int
	max int
	dir int
}

func newCursor(maxStart int) *cursor {
	return &cursor{pos: 1, max: max(1, maxStart), dir: 1}
}

func (c *cursor) step() int {
	if c.max == 1 {
		return c.pos
	}
	next := c.pos + c.dir
	if next > c.max || next < 1 {
		c.dir = -c.dir
		next = c.pos + c.dir
	}
	c.pos = next
	return c.pos
}

func (c *cursor) reset() {
	c.pos = 1
	c.dir = 1
}

type playSession struct {
	id     string
	conn   *websocket.Conn
	cursor *cursor
	speed  time.Duration
	frames int64
	logger logger.Logger
}

// run owns every write to the connection. A reader goroutine forwards
// client commands until the connection fails or run returns.
func (s *playSession) run(ctx context.Context) {
	defer func() { _ = s.conn.Close() }()

	cmds := make(chan playCommand)
	readerDone := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)
	go s.read(ctx, cmds, readerDone, quit)

	ticker := time.NewTicker(s.speed)
	ticker.Stop()
	defer ticker.Stop()

	state := statePaused
	if err := s.send(state); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(time.Second)
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
			return
		case <-readerDone:
			return
		case cmd := <-cmds:
			if cmd.Speed > 0 {
				s.speed = ClampSpeed(cmd.Speed, s.speed)
			}
			switch cmd.Action {
			case actionPlay:
				state = statePlaying
				ticker.Reset(s.speed)
			case actionPause:
				state = statePaused
				ticker.Stop()
			case actionStop:
				state = stateStopped
				ticker.Stop()
				s.cursor.reset()
			default:
				s.logger.Debug(ctx, "ignoring unknown play action", logger.String("action", cmd.Action))
				continue
			}
			if err := s.send(state); err != nil {
				return
			}
		case <-ticker.C:
			s.cursor.step()
			metrics.RecordPlayFrame()
			if err := s.send(state); err != nil {
				return
			}
		}
	}
}

func (s *playSession) read(ctx context.Context, cmds chan<- playCommand, done, quit chan struct{}) {
	defer close(done)
	s.conn.SetReadLimit(playMaxMessageSize)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug(ctx, "play session read failed", logger.Error(err))
			}
			return
		}
		var cmd playCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.logger.Debug(ctx, "ignoring malformed play command", logger.Error(err))
			continue
		}
		select {
		case cmds <- cmd:
		case <-quit:
			return
		}
	}
}

func (s *playSession) send(state string) error {
	frame := playFrame{
		Session:   s.id,
		GStart:    s.cursor.pos,
		SliderMax: s.cursor.max,
		State:     state,
		SpeedMS:   s.speed.Milliseconds(),
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(playWriteTimeout))
	if err := s.conn.WriteJSON(frame); err != nil {
		s.logger.Debug(context.Background(), "play session write failed", logger.Error(err))
		return err
	}
	s.frames++
	return nil
}
