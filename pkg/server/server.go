package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ezivnuska/pokertable/pkg/engine"
	"github.com/ezivnuska/pokertable/pkg/poker"
	"github.com/ezivnuska/pokertable/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Command is the wire format for every inbound client message.
type Command struct {
	Type     string        `json:"type"`
	Table    string        `json:"table,omitempty"`
	PlayerID string        `json:"playerId,omitempty"`
	Username string        `json:"username,omitempty"`
	Amount   int64         `json:"amount,omitempty"`
	Action   *poker.Action `json:"action,omitempty"`
	IsAI     bool          `json:"isAI,omitempty"`
	DelaySec int64         `json:"delaySec,omitempty"`
}

// Server exposes the engine over websockets and runs the maintenance ticker.
type Server struct {
	log          slog.Logger
	engine       *engine.Engine
	hub          *Hub
	tickInterval time.Duration

	httpSrv *http.Server
}

// New wires a server around an engine. The returned hub is already installed
// as the engine's notifier by the caller.
func New(eng *engine.Engine, hub *Hub, log slog.Logger, addr string, tickInterval time.Duration) *Server {
	if log == nil {
		log = slog.Disabled
	}
	if tickInterval <= 0 {
		tickInterval = time.Second
	}

	s := &Server{
		log:          log,
		engine:       eng,
		hub:          hub,
		tickInterval: tickInterval,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Run starts the hub, the maintenance ticker and the HTTP listener, and shuts
// everything down when the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run()
	go s.tickLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// tickLoop drives the engine's maintenance sweep: timers, scheduled starts,
// disconnects, automated seats.
func (s *Server) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.engine.Tick(ctx)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleWebSocket upgrades the connection and starts its pumps. Connections
// without an authenticated player id get a guest identity.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade failed: %v", err)
		return
	}

	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		playerID = "guest:" + uuid.NewString()
	}

	c := &client{
		id:       uuid.NewString(),
		playerID: playerID,
		conn:     conn,
		send:     make(chan []byte, 256),
	}
	s.hub.register <- c
	s.log.Infof("client %s connected from %s as %s", c.id, r.RemoteAddr, playerID)

	s.hub.sendTo(c, Envelope{Event: "welcome", Payload: map[string]string{"playerId": playerID}})

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.unregister <- c
		c.conn.Close()
		s.log.Infof("client %s disconnected, %d still connected", c.id, s.hub.clientCount())
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Debugf("client %s read error: %v", c.id, err)
			}
			return
		}
		if err := s.handleCommand(c, message); err != nil {
			s.hub.sendTo(c, Envelope{Event: "error", Payload: map[string]string{"message": err.Error()}})
		}
	}
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			s.log.Debugf("client %s write error: %v", c.id, err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// handleCommand decodes and routes one inbound message. Errors come back to
// the sender as error envelopes; rule rejections carry their reason verbatim.
func (s *Server) handleCommand(c *client, message []byte) error {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		return errors.New("malformed command")
	}
	if s.log.Level() <= slog.LevelTrace {
		s.log.Tracef("client %s command:\n%s", c.id, spew.Sdump(cmd))
	}

	ctx := context.Background()
	code := cmd.Table
	if code == "" {
		code = s.engine.Config().SingletonCode
	}
	playerID := cmd.PlayerID
	if playerID == "" {
		playerID = c.playerID
	}

	switch cmd.Type {
	case "join":
		username := cmd.Username
		if username == "" {
			username = playerID
		}
		_, err := s.engine.Join(ctx, code, playerID, username, cmd.IsAI)
		return s.reportErr(err)

	case "leave":
		_, err := s.engine.Leave(ctx, code, playerID)
		return s.reportErr(err)

	case "heartbeat":
		return s.reportErr(s.engine.Heartbeat(ctx, code, playerID))

	case "lock":
		_, err := s.engine.Lock(ctx, code)
		return s.reportErr(err)

	case "schedule_lock":
		at := time.Time{}
		if cmd.DelaySec > 0 {
			at = time.Now().Add(time.Duration(cmd.DelaySec) * time.Second)
		}
		_, err := s.engine.ScheduleLock(ctx, code, at)
		return s.reportErr(err)

	case "bet", "raise":
		_, err := s.engine.PlaceBet(ctx, code, playerID, cmd.Amount)
		return s.reportErr(err)

	case "call":
		_, err := s.engine.Call(ctx, code, playerID)
		return s.reportErr(err)

	case "check":
		_, err := s.engine.Check(ctx, code, playerID)
		return s.reportErr(err)

	case "fold":
		_, err := s.engine.Fold(ctx, code, playerID)
		return s.reportErr(err)

	case "all_in":
		_, err := s.engine.Act(ctx, code, playerID, poker.Action{Kind: poker.AllIn})
		return s.reportErr(err)

	case "preselect":
		_, err := s.engine.SetPreSelectedAction(ctx, code, playerID, cmd.Action)
		return s.reportErr(err)

	case "reset":
		_, err := s.engine.Reset(ctx, code)
		return s.reportErr(err)

	case "state":
		return s.sendState(c, code, playerID)

	default:
		return errors.New("unknown command type")
	}
}

// sendState replies with the table state from the requesting player's point
// of view: the public view plus their own hole cards.
func (s *Server) sendState(c *client, code, playerID string) error {
	g, err := s.engine.GetGame(code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.New("no such table")
		}
		return s.reportErr(err)
	}

	view := g.PublicView()
	if mine := g.PlayerByID(playerID); mine != nil {
		if seat := view.PlayerByID(playerID); seat != nil {
			seat.Hand = append([]poker.Card{}, mine.Hand...)
		}
	}

	s.hub.sendTo(c, Envelope{Event: string(engine.EventGameState), Table: code, Payload: view})
	return nil
}

// reportErr translates engine failures into client-facing errors. Internal
// errors are logged and masked; rule errors and contention pass through.
func (s *Server) reportErr(err error) error {
	switch {
	case err == nil:
		return nil
	case engine.IsRuleError(err), errors.Is(err, engine.ErrContended), errors.Is(err, store.ErrNotFound):
		return err
	default:
		s.log.Errorf("command failed: %v", err)
		return errors.New("internal error")
	}
}
