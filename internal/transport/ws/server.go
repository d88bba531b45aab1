package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"worldofbits.io/internal/persistence/save"
	"worldofbits.io/internal/protocol"
	"worldofbits.io/internal/sim/game"
	"worldofbits.io/internal/sim/lattice"
	"worldofbits.io/internal/sim/movement"
	"worldofbits.io/internal/sim/tuning"
)

const outQueue = 1024

// Server runs one game session per websocket connection. All sessions
// share one save gateway.
type Server struct {
	tun     tuning.Tuning
	save    *save.Gateway
	journal game.Journal
	log     *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	active   atomic.Int64
}

// Stats is a point-in-time view of connection counters.
type Stats struct {
	Active int64
	Total  uint64
}

func (s *Server) Stats() Stats {
	return Stats{Active: s.active.Load(), Total: s.nextID.Load()}
}

func NewServer(tun tuning.Tuning, gw *save.Gateway, logger *log.Logger) *Server {
	return &Server{
		tun:  tun,
		save: gw,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) SetJournal(j game.Journal) { s.journal = j }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.handshake(conn)
		if !ok {
			return
		}
		if hello.Mode == "" {
			hello.Mode = r.URL.Query().Get("mode")
		}

		id := fmt.Sprintf("S%d", s.nextID.Add(1))
		s.active.Add(1)
		defer s.active.Add(-1)
		logger := s.log.With("session", id)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		welcome := protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SessionID:       id,
			Params: protocol.WorldParams{
				TileSize:                s.tun.TileSize,
				WindowRadius:            s.tun.WindowRadius,
				InteractionRadiusMeters: s.tun.InteractionRadiusMeters,
				WinThreshold:            s.tun.WinThreshold,
				RangeRadiusPx:           s.tun.RangeRadiusPx,
			},
		}
		if err := writeJSON(conn, welcome); err != nil {
			return
		}

		out := make(chan []byte, outQueue)
		view := newFacade(out, ctx.Done(), logger)
		sess := game.New(game.Config{Tuning: s.tun, Mode: hello.Mode, GeoSupported: hello.Geo}, view, s.save, logger)
		if s.journal != nil {
			sess.SetJournal(s.journal)
		}

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		runDone := make(chan struct{})
		go func() {
			defer close(runDone)
			if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("session stopped", "err", err)
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := s.route(ctx, sess, msg, out); err != nil {
				break
			}
		}

		// Cleanup.
		cancel()
		<-runDone
		logger.Debug("session closed")
	}
}

func (s *Server) handshake(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return protocol.HelloMsg{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return protocol.HelloMsg{}, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return protocol.HelloMsg{}, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return protocol.HelloMsg{}, false
	}
	return hello, true
}

// route turns one client message into a session command. It returns an
// error only when the connection should be dropped.
func (s *Server) route(ctx context.Context, sess *game.Session, msg []byte, out chan<- []byte) error {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return queueError(ctx, out, protocol.ErrProtoBadRequest, "bad json")
	}
	if base.ProtocolVersion != protocol.Version {
		return queueError(ctx, out, protocol.ErrProtoBadRequest, "bad protocol_version")
	}

	switch base.Type {
	case protocol.TypeCmd:
		var m protocol.CmdMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return queueError(ctx, out, protocol.ErrProtoBadRequest, "bad CMD")
		}
		cmd, err := CommandFor(m)
		if err != nil {
			return queueError(ctx, out, protocol.ErrBadRequest, err.Error())
		}
		res, err := sess.Submit(ctx, cmd)
		if err != nil {
			return err
		}
		if res.Err != nil {
			return queueError(ctx, out, errorCode(res.Err), res.Err.Error())
		}
	case protocol.TypeFix:
		var m protocol.FixMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return queueError(ctx, out, protocol.ErrProtoBadRequest, "bad FIX")
		}
		return sess.Post(ctx, game.FixReceived{Fix: movement.Fix{Lat: m.Lat, Lng: m.Lng}})
	case protocol.TypeFixError:
		var m protocol.FixErrorMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return queueError(ctx, out, protocol.ErrProtoBadRequest, "bad FIX_ERROR")
		}
		return sess.Post(ctx, game.FixFailed{Err: fmt.Errorf("%s: %s", m.Code, m.Message)})
	}
	return nil
}

// CommandFor maps a CMD message to a session command.
func CommandFor(m protocol.CmdMsg) (game.Command, error) {
	switch strings.ToUpper(m.Cmd) {
	case protocol.CmdMove:
		d, ok := movement.ParseDirection(m.Dir)
		if !ok {
			return nil, fmt.Errorf("bad dir %q", m.Dir)
		}
		return game.MoveRequested{Direction: d}, nil
	case protocol.CmdMode:
		mode, ok := movement.ParseMode(m.Mode)
		if !ok {
			return nil, fmt.Errorf("bad mode %q", m.Mode)
		}
		return game.ModeRequested{Mode: mode}, nil
	case protocol.CmdTake, protocol.CmdCombine, protocol.CmdStore, protocol.CmdOpen:
		if m.Cell == nil {
			return nil, fmt.Errorf("%s needs cell", m.Cmd)
		}
		c := lattice.Cell{X: m.Cell[0], Y: m.Cell[1]}
		switch strings.ToUpper(m.Cmd) {
		case protocol.CmdTake:
			return game.TakeRequested{Cell: c}, nil
		case protocol.CmdCombine:
			return game.CombineRequested{Cell: c}, nil
		case protocol.CmdStore:
			return game.StoreRequested{Cell: c}, nil
		default:
			return game.OpenRequested{Cell: c}, nil
		}
	}
	return nil, fmt.Errorf("unknown cmd %q", m.Cmd)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrNotVisible):
		return protocol.ErrInvalidTarget
	case errors.Is(err, movement.ErrInactive):
		return protocol.ErrBlocked
	case errors.Is(err, game.ErrNotBooted):
		return protocol.ErrInternal
	default:
		return protocol.ErrBadRequest
	}
}

func queueError(ctx context.Context, out chan<- []byte, code, message string) error {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	if err != nil {
		return err
	}
	select {
	case out <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
