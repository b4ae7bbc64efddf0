package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Handler serves one command. Its Response is discarded for fire-and-forget
// commands.
type Handler interface {
	Handle(ctx context.Context, cmd Command) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, cmd Command) Response

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) Response { return f(ctx, cmd) }

// Server accepts UI connections. Every command runs in its own goroutine, so
// a slow conversion never holds up the next request.
type Server struct {
	handler    Handler
	log        hclog.Logger
	maxMessage int

	mu   sync.Mutex
	subs map[*conn]map[string]bool
	wg   sync.WaitGroup
}

// NewServer returns a Server dispatching to h.
func NewServer(h Handler, log hclog.Logger, maxMessage int) *Server {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if maxMessage <= 0 {
		maxMessage = DefaultMaxMessage
	}
	return &Server{
		handler:    h,
		log:        log.Named("bridge"),
		maxMessage: maxMessage,
		subs:       make(map[*conn]map[string]bool),
	}
}

// Listen removes a stale socket file and listens on socketPath, readable
// only by the current user.
func Listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o700); err != nil {
		return nil, fmt.Errorf("socket dir: %w", err)
	}
	if c, err := net.Dial("unix", socketPath); err == nil {
		c.Close()
		return nil, fmt.Errorf("another host is already listening on %s", socketPath)
	}
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

// Serve accepts connections until ctx is cancelled or ln fails, then waits
// for in-flight commands.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		c := &conn{Conn: nc, out: make(chan []byte, 64)}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, c)
		}()
	}
}

// Broadcast sends ev to every subscriber that asked for it. A subscriber
// that cannot keep up misses the event.
func (s *Server) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	for c, filter := range s.subs {
		if len(filter) > 0 && !filter[ev.Event] {
			continue
		}
		select {
		case c.out <- data:
		default:
			s.log.Debug("dropping event for slow subscriber", "event", ev.Event)
		}
	}
}

// Subscribers returns the number of subscribed connections.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type conn struct {
	net.Conn
	wmu    sync.Mutex
	out    chan []byte
	pumped sync.Once
}

func (c *conn) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err = c.Write(append(data, '\n'))
	return err
}

// pump writes queued events until the connection closes.
func (c *conn) pump(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data := <-c.out:
			c.wmu.Lock()
			_, err := c.Write(data)
			c.wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) serveConn(ctx context.Context, c *conn) {
	done := make(chan struct{})
	var handlers sync.WaitGroup
	defer func() {
		handlers.Wait()
		close(done)
		s.mu.Lock()
		delete(s.subs, c)
		s.mu.Unlock()
		c.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(c)
	scanner.Buffer(make([]byte, 64*1024), s.maxMessage)
	for scanner.Scan() {
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			_ = c.send(Response{OK: false, Reason: "invalid command: " + err.Error()})
			continue
		}

		if cmd.Cmd == CmdSubscribe {
			filter := make(map[string]bool, len(cmd.Events))
			for _, e := range cmd.Events {
				filter[e] = true
			}
			s.mu.Lock()
			s.subs[c] = filter
			s.mu.Unlock()
			c.pumped.Do(func() { go c.pump(done) })
			_ = c.send(Response{ID: cmd.ID, OK: true})
			continue
		}

		handlers.Add(1)
		go func(cmd Command) {
			defer handlers.Done()
			resp := s.dispatch(ctx, cmd)
			if IsFireAndForget(cmd.Cmd) {
				return
			}
			resp.ID = cmd.ID
			if err := c.send(resp); err != nil {
				s.log.Debug("write response", "cmd", cmd.Cmd, "error", err)
			}
		}(cmd)
	}
	if err := scanner.Err(); err != nil {
		s.log.Debug("connection read", "error", err)
	}
}

func (s *Server) dispatch(ctx context.Context, cmd Command) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handler panic", "cmd", cmd.Cmd, "panic", r, "stack", string(debug.Stack()))
			resp = Response{OK: false, Reason: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	s.log.Trace("command", "cmd", cmd.Cmd, "id", cmd.ID, "path", cmd.Path)
	return s.handler.Handle(ctx, cmd)
}
