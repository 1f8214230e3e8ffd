package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/interact"
	"github.com/matzehuels/topoview/pkg/topology"
	"github.com/matzehuels/topoview/pkg/view"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxCommand   = 4096
	eventBacklog = 16
)

// Stream event types, sent as JSON text messages. Frames are sent as
// binary PNG messages.
const (
	EventSelection = "selection"
	EventMode      = "mode"
	EventError     = "error" // failed commands and failed refreshes
)

// StreamEvent is one JSON message on the stream.
type StreamEvent struct {
	Type      string          `json:"type"`
	Selection *interact.Event `json:"selection,omitempty"`
	Mode      view.Mode       `json:"mode,omitempty"`
	Error     *errorBody      `json:"error,omitempty"`
}

// StreamCommand is a JSON message a client may send: "click" with X and
// Y, "select" with ID, "clear", or "mode" with Mode.
type StreamCommand struct {
	Type string  `json:"type"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	ID   string  `json:"id,omitempty"`
	Mode string  `json:"mode,omitempty"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		s.logger.Debug("stream upgrade failed", "err", err)
		return
	}
	if !s.track() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer s.streams.Done()

	c := &streamClient{
		id:      uuid.New(),
		srv:     s,
		conn:    conn,
		frames:  make(chan struct{}, 1),
		events:  make(chan StreamEvent, eventBacklog),
		limiter: rate.NewLimiter(rate.Limit(s.fps), 1),
	}
	c.run()
}

// streamClient owns one websocket. Only run writes to the connection.
type streamClient struct {
	id      uuid.UUID
	srv     *Server
	conn    *websocket.Conn
	frames  chan struct{}
	events  chan StreamEvent
	limiter *rate.Limiter
}

func (c *streamClient) run() {
	s := c.srv
	log := s.logger.With("stream", c.id)
	log.Info("stream opened", "fps", s.fps)
	defer log.Info("stream closed")

	cancelFrames := s.vis.OnFrame(func(view.Frame) { c.signalFrame() })
	defer cancelFrames()
	cancelSel := s.vis.Controller().Subscribe(func(ev interact.Event) {
		c.push(StreamEvent{Type: EventSelection, Selection: &ev})
	})
	defer cancelSel()
	cancelRefresh := s.refresher.Subscribe(func(_ *topology.Snapshot, err error) {
		if err != nil {
			c.pushError(err)
		}
	})
	defer cancelRefresh()

	readerDone := make(chan struct{})
	go c.readCommands(readerDone)
	defer func() {
		_ = c.conn.Close()
		<-readerDone
	}()

	// Initial state: current selection and the latest frame.
	d, _ := s.vis.Controller().Detail()
	c.push(StreamEvent{Type: EventSelection, Selection: &interact.Event{
		Selected:  d,
		Cause:     interact.CauseRefresh,
		PanelOpen: s.vis.Controller().PanelOpen(),
	}})
	c.push(StreamEvent{Type: EventMode, Mode: s.vis.Mode()})
	if s.vis.Mode() == view.Mode2D {
		_ = s.vis.Redraw()
	}
	c.signalFrame()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	throttle := time.NewTimer(time.Hour)
	throttle.Stop()
	defer throttle.Stop()
	armed := false

	for {
		select {
		case <-s.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-readerDone:
			return
		case ev := <-c.events:
			if err := c.writeJSON(ev); err != nil {
				log.Debug("stream write failed", "err", err)
				return
			}
		case <-c.frames:
			if armed {
				continue
			}
			if d := c.limiter.Reserve().Delay(); d > 0 {
				throttle.Reset(d)
				armed = true
				continue
			}
			if err := c.writeFrame(); err != nil {
				log.Debug("stream write failed", "err", err)
				return
			}
		case <-throttle.C:
			armed = false
			if err := c.writeFrame(); err != nil {
				log.Debug("stream write failed", "err", err)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// signalFrame notes that a newer frame exists. Signals coalesce.
func (c *streamClient) signalFrame() {
	select {
	case c.frames <- struct{}{}:
	default:
	}
}

// push queues a JSON event, dropping it when the client lags behind.
func (c *streamClient) push(ev StreamEvent) {
	select {
	case c.events <- ev:
	default:
		c.srv.logger.Warn("stream backlog full, dropping event", "stream", c.id, "type", ev.Type)
	}
}

// pushError queues an error event carrying err's code.
func (c *streamClient) pushError(err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	c.push(StreamEvent{Type: EventError, Error: &errorBody{Code: code, Message: errors.UserMessage(err)}})
}

func (c *streamClient) writeJSON(ev StreamEvent) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(ev)
}

func (c *streamClient) writeFrame() error {
	png, err := c.srv.vis.PNG()
	if err != nil {
		// Nothing drawn yet.
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, png)
}

func (c *streamClient) readCommands(done chan<- struct{}) {
	defer close(done)
	c.conn.SetReadLimit(maxCommand)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd StreamCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			// Malformed JSON keeps the connection; transport errors end it.
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if stderrors.As(err, &syntaxErr) || stderrors.As(err, &typeErr) {
				c.push(StreamEvent{Type: EventError, Error: &errorBody{Code: errors.ErrCodeInvalidInput, Message: err.Error()}})
				continue
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := c.apply(cmd); err != nil {
			c.pushError(err)
		}
	}
}

func (c *streamClient) apply(cmd StreamCommand) error {
	vis := c.srv.vis
	switch cmd.Type {
	case "click":
		vis.Click(cmd.X, cmd.Y)
	case "select":
		return vis.Select(cmd.ID)
	case "clear":
		vis.ClearSelection()
	case "mode":
		m, err := view.ParseMode(cmd.Mode)
		if err != nil {
			return err
		}
		if err := vis.SetMode(m); err != nil {
			return err
		}
		c.push(StreamEvent{Type: EventMode, Mode: m})
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown command %q", cmd.Type)
	}
	return nil
}
