// File: internal/transport/server.go

// Package transport owns the engine-facing I/O endpoint. The simulation
// engine drives the exchange: it POSTs the event produced by the previous
// action and the HTTP response body carries the next action. The handler
// blocks on the session controller's rendezvous until the planning side has
// submitted that action; there is no pipelining and no queueing beyond the
// single in-flight exchange.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codealphago/ai2thor/api/schemas"
	"github.com/codealphago/ai2thor/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxEventBytes bounds a single engine POST (metadata plus frame).
const maxEventBytes = 32 << 20

// Session is the controller half the transport talks to.
type Session interface {
	// NextAction blocks until the planning side submits an action.
	NextAction(ctx context.Context) (schemas.Action, error)
	// DeliverEvent completes the rendezvous with the engine's event.
	DeliverEvent(ctx context.Context, ev *schemas.Event) error
}

// Server accepts engine connections on a local HTTP endpoint.
type Server struct {
	log     *zap.Logger
	cfg     config.EngineConfig
	session Session
	token   string

	httpSrv *http.Server
	// closing is closed when shutdown begins so parked handlers unblock.
	closing chan struct{}

	mu       sync.Mutex
	listener net.Listener
	seq      int64
}

// NewServer builds a Server with a fresh client token. The engine must echo
// the token with every request; it is exported through the launch
// environment by the process-management layer.
func NewServer(cfg config.EngineConfig, session Session, logger *zap.Logger) *Server {
	s := &Server{
		log:     logger.Named("transport"),
		cfg:     cfg,
		session: session,
		token:   uuid.New().String(),
		closing: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/train", s.handleTrain)
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.httpSrv = &http.Server{Handler: mux}
	return s
}

// Token returns the client token the engine must present.
func (s *Server) Token() string { return s.token }

// Addr returns the bound address; empty before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen binds the engine endpoint. Callers that read Addr from another
// goroutine should call this before spawning Start.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind engine endpoint on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.log.Info("Engine endpoint listening.", zap.String("addr", ln.Addr().String()))
	return nil
}

// Start serves until the context is cancelled, binding the listener first
// if Listen has not been called. It blocks; run it in its own goroutine or
// errgroup.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.listener
		s.mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("engine endpoint failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Unpark any handler blocked on the rendezvous, then let the
		// in-flight HTTP exchange drain.
		close(s.closing)
		return s.httpSrv.Shutdown(context.Background())
	})
	return g.Wait()
}

// handlerContext derives a request context that is also cancelled when the
// server begins shutting down. Without it, a handler parked on the
// rendezvous after the planner has finished would stall Shutdown forever.
func (s *Server) handlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.closing:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// handleTrain processes one engine exchange: decode the incoming event,
// hand it to the session, block for the next action, and reply with its
// wire encoding.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// The cap must be in place before any form parsing, including the
	// token lookup below.
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBytes)

	if !s.authorized(r) {
		s.log.Warn("Rejected engine request with bad client token.")
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	ev, err := decodeEvent(r)
	if err != nil {
		s.log.Warn("Rejected malformed engine event.", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.handlerContext(r.Context())
	defer cancel()
	if err := s.session.DeliverEvent(ctx, ev); err != nil {
		http.Error(w, "session closed", http.StatusServiceUnavailable)
		return
	}

	action, err := s.session.NextAction(ctx)
	if err != nil {
		// The engine went away before the planner produced an action.
		http.Error(w, "no action available", http.StatusServiceUnavailable)
		return
	}

	body, err := schemas.MarshalAction(action, s.nextSequenceID(action))
	if err != nil {
		s.log.Error("Failed to encode action.", zap.Error(err))
		http.Error(w, "encoding failure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		s.log.Warn("Failed to write action to engine.", zap.Error(err))
	}
}

// nextSequenceID advances the per-session action counter. A Reset restarts
// the sequence at zero, matching the engine's expectation for a fresh
// scene.
func (s *Server) nextSequenceID(action schemas.Action) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, isReset := action.(schemas.Reset); isReset {
		s.seq = 0
	} else {
		s.seq++
	}
	return s.seq
}

func (s *Server) authorized(r *http.Request) bool {
	if tok := r.Header.Get("X-Client-Token"); tok != "" {
		return tok == s.token
	}
	return r.FormValue("token") == s.token
}

// decodeEvent parses an engine POST. The engine sends either multipart form
// data (a "metadata" JSON field plus an optional "image" frame part) or a
// bare JSON event body.
func decodeEvent(r *http.Request) (*schemas.Event, error) {
	ct := r.Header.Get("Content-Type")
	if len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxEventBytes); err != nil {
			return nil, fmt.Errorf("failed to parse multipart event: %w", err)
		}
		raw := r.FormValue("metadata")
		if raw == "" {
			return nil, errors.New("multipart event missing metadata field")
		}
		var md schemas.Metadata
		if err := json.Unmarshal([]byte(raw), &md); err != nil {
			return nil, fmt.Errorf("failed to decode event metadata: %w", err)
		}
		ev := &schemas.Event{Metadata: md}
		if file, _, err := r.FormFile("image"); err == nil {
			defer file.Close()
			img, err := io.ReadAll(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read event image: %w", err)
			}
			ev.Image = img
		}
		return ev, nil
	}

	var ev schemas.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode event body: %w", err)
	}
	return &ev, nil
}
