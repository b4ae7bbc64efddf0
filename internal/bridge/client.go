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
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/DeamonDev888/screen-recorder/internal/library"
	"github.com/DeamonDev888/screen-recorder/internal/sources"
	"github.com/DeamonDev888/screen-recorder/internal/thumbnail"
)

// DefaultMaxMessage bounds one NDJSON line. Recordings travel inline, so it
// has to hold a whole video.
const DefaultMaxMessage = 1 << 30

// ErrClosed is returned for calls on a closed connection.
var ErrClosed = errors.New("connection closed")

// SocketPath returns the default host socket path.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "screenrec", "screenrec.sock")
	}
	return filepath.Join(os.TempDir(), "screenrec-"+strconv.Itoa(os.Getuid()), "screenrec.sock")
}

// RemoteError is a failure reported by the host.
type RemoteError struct {
	Cmd    string
	Reason string
}

func (e *RemoteError) Error() string { return e.Reason }

// Client talks to the host. Responses are matched to commands by ID, so
// several calls may be in flight at once.
type Client struct {
	conn net.Conn

	wmu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Response
	err     error

	events chan Event
	done   chan struct{}
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	maxMessage int
}

// WithMaxMessage sets the largest line the client will read.
func WithMaxMessage(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.maxMessage = n
		}
	}
}

// Connect dials the host Unix socket.
func Connect(socketPath string, opts ...Option) (*Client, error) {
	o := clientOptions{maxMessage: DefaultMaxMessage}
	for _, opt := range opts {
		opt(&o)
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to host: %w", err)
	}

	c := &Client{
		conn:    conn,
		pending: make(map[string]chan Response),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), o.maxMessage)
	go c.readLoop(scanner)
	return c, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readLoop(scanner *bufio.Scanner) {
	var loopErr error
	for scanner.Scan() {
		line := scanner.Bytes()
		var head struct {
			ID    string `json:"id"`
			Event string `json:"event"`
		}
		if err := json.Unmarshal(line, &head); err != nil {
			continue
		}

		if head.Event != "" {
			var ev Event
			if err := json.Unmarshal(line, &ev); err == nil {
				select {
				case c.events <- ev:
				default:
					// Reader is not keeping up; events are advisory.
				}
			}
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
	if err := scanner.Err(); err != nil {
		loopErr = fmt.Errorf("read response: %w", err)
	} else {
		loopErr = ErrClosed
	}

	c.mu.Lock()
	c.err = loopErr
	c.pending = nil
	c.mu.Unlock()
	close(c.done)
}

func (c *Client) write(cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	data = append(data, '\n')

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// SendCommand sends a command and waits for its response.
func (c *Client) SendCommand(cmd Command) (Response, error) {
	return c.Call(context.Background(), cmd)
}

// Call sends a command and waits for its response or ctx.
func (c *Client) Call(ctx context.Context, cmd Command) (Response, error) {
	if IsFireAndForget(cmd.Cmd) {
		return Response{}, fmt.Errorf("%s gets no response; use Notify", cmd.Cmd)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	ch := make(chan Response, 1)

	c.mu.Lock()
	if c.pending == nil {
		err := c.err
		c.mu.Unlock()
		return Response{}, err
	}
	c.pending[cmd.ID] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		if c.pending != nil {
			delete(c.pending, cmd.ID)
		}
		c.mu.Unlock()
	}

	if err := c.write(cmd); err != nil {
		forget()
		return Response{}, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.done:
		select {
		case resp := <-ch:
			return resp, nil
		default:
		}
		c.mu.Lock()
		err := c.err
		c.mu.Unlock()
		return Response{}, err
	case <-ctx.Done():
		forget()
		return Response{}, ctx.Err()
	}
}

// Notify sends a fire-and-forget command.
func (c *Client) Notify(cmd Command) error {
	if !IsFireAndForget(cmd.Cmd) {
		return fmt.Errorf("%s expects a response; use Call", cmd.Cmd)
	}
	cmd.ID = ""
	return c.write(cmd)
}

// Subscribe asks the host to stream events on this connection. Pass no names
// to receive every event.
func (c *Client) Subscribe(events ...string) error {
	resp, err := c.SendCommand(Command{Cmd: CmdSubscribe, Events: events})
	if err != nil {
		return err
	}
	return check(CmdSubscribe, resp)
}

// ReadEvent returns the next event. It blocks until one arrives or the
// connection ends.
func (c *Client) ReadEvent() (Event, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.done:
		select {
		case ev := <-c.events:
			return ev, nil
		default:
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return Event{}, c.err
	}
}

func check(cmd string, resp Response) error {
	if resp.OK {
		return nil
	}
	reason := resp.Reason
	if reason == "" {
		reason = cmd + " failed"
	}
	return &RemoteError{Cmd: cmd, Reason: reason}
}

func (c *Client) do(ctx context.Context, cmd Command) (Response, error) {
	resp, err := c.Call(ctx, cmd)
	if err != nil {
		return resp, err
	}
	return resp, check(cmd.Cmd, resp)
}

// ListSources returns the capture sources of a fresh snapshot.
func (c *Client) ListSources(ctx context.Context) ([]sources.Source, error) {
	resp, err := c.do(ctx, Command{Cmd: CmdListSources})
	return resp.Sources, err
}

// InvalidateSources tells the host the picker closed without a selection.
func (c *Client) InvalidateSources(ctx context.Context) error {
	_, err := c.do(ctx, Command{Cmd: CmdInvalidateSources})
	return err
}

// ResolveSource checks that id belongs to the host's current source
// snapshot. An id from an older enumeration, or from a picker that was
// dismissed, fails with sources.ErrStaleSource.
func (c *Client) ResolveSource(ctx context.Context, id string) error {
	resp, err := c.do(ctx, Command{Cmd: CmdResolveSource, SourceID: id})
	if err != nil && resp.Code == CodeStaleSource {
		return fmt.Errorf("%s: %w", id, sources.ErrStaleSource)
	}
	return err
}

// SaveRecording hands a finished recording to the host's save flow.
func (c *Client) SaveRecording(ctx context.Context, video, thumb []byte) (path string, cancelled bool, err error) {
	cmd := Command{Cmd: CmdSaveRecording, Video: video}
	if len(thumb) > 0 {
		cmd.Thumbnail = thumbnail.DataURL(thumb)
	}
	resp, err := c.do(ctx, cmd)
	if err != nil {
		return "", false, err
	}
	if resp.Cancelled != nil && *resp.Cancelled {
		return "", true, nil
	}
	return resp.Path, false, nil
}

// LoadLibrary lists the recordings.
func (c *Client) LoadLibrary(ctx context.Context) ([]library.Recording, error) {
	resp, err := c.do(ctx, Command{Cmd: CmdLoadLibrary})
	return resp.Recordings, err
}

// Rename renames a recording.
func (c *Client) Rename(ctx context.Context, path, newName string) (string, error) {
	resp, err := c.do(ctx, Command{Cmd: CmdRename, Path: path, NewName: newName})
	return resp.NewPath, err
}

// Delete moves a recording to the trash.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, Command{Cmd: CmdDelete, Path: path})
	return err
}

// Duplicate copies a recording and returns the copy's path.
func (c *Client) Duplicate(ctx context.Context, path string) (string, error) {
	resp, err := c.do(ctx, Command{Cmd: CmdDuplicate, Path: path})
	return resp.NewPath, err
}

// Convert transcodes a recording and returns the new file's path.
func (c *Client) Convert(ctx context.Context, path, format string) (string, error) {
	resp, err := c.do(ctx, Command{Cmd: CmdConvert, Path: path, Format: format})
	return resp.NewPath, err
}

// Status returns the host status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	resp, err := c.do(ctx, Command{Cmd: CmdStatus})
	if err != nil || resp.Status == nil {
		return Status{}, err
	}
	return *resp.Status, nil
}

func (c *Client) Reveal(path string) error { return c.Notify(Command{Cmd: CmdReveal, Path: path}) }
func (c *Client) Open(path string) error   { return c.Notify(Command{Cmd: CmdOpen, Path: path}) }
func (c *Client) Minimize() error          { return c.Notify(Command{Cmd: CmdMinimize}) }
func (c *Client) CloseWindow() error       { return c.Notify(Command{Cmd: CmdClose}) }
func (c *Client) ToggleFullscreen() error  { return c.Notify(Command{Cmd: CmdToggleFullscreen}) }
func (c *Client) RegisterShortcuts() error { return c.Notify(Command{Cmd: CmdRegisterShortcuts}) }

func (c *Client) UnregisterShortcuts() error {
	return c.Notify(Command{Cmd: CmdUnregisterShortcuts})
}
