package yeelight

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/homedash/internal/device"
)

// Compile-time capability checks.
var (
	_ device.Conn             = (*Conn)(nil)
	_ device.Switch           = (*Conn)(nil)
	_ device.Dimmer           = (*Conn)(nil)
	_ device.ColorTemperature = (*Conn)(nil)
	_ device.ColorRGB         = (*Conn)(nil)
)

// maxReplySize caps one reply line.
const maxReplySize = 16 * 1024

// Conn is an open LAN control connection to one bulb.
//
// Calls are serialised; a bulb processes one request at a time anyway.
type Conn struct {
	addr string
	cfg  Config

	mu     sync.Mutex
	nc     net.Conn
	r      *bufio.Reader
	nextID int
	closed bool
}

type request struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type reply struct {
	ID     *int   `json:"id"`
	Method string `json:"method,omitempty"`
	Result []any  `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func dial(ctx context.Context, addr string, cfg Config) (*Conn, error) {
	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, addr, err)
	}
	return &Conn{
		addr: addr,
		cfg:  cfg,
		nc:   nc,
		r:    bufio.NewReaderSize(nc, 1024),
	}, nil
}

// Addr returns the bulb's address.
func (c *Conn) Addr() string {
	return c.addr
}

// Properties reads the bulb's current properties.
func (c *Conn) Properties(ctx context.Context) (device.Properties, error) {
	params := make([]any, len(propNames))
	for i, p := range propNames {
		params[i] = p
	}
	result, err := c.call(ctx, "get_prop", params...)
	if err != nil {
		return nil, err
	}
	if len(result) != len(propNames) {
		return nil, fmt.Errorf("%w: get_prop returned %d values, want %d",
			ErrInvalidResponse, len(result), len(propNames))
	}

	raw := make(map[string]string, len(propNames))
	for i, name := range propNames {
		raw[name] = stringify(result[i])
	}
	return normalizeProps(raw), nil
}

// TurnOn powers the bulb on.
func (c *Conn) TurnOn(ctx context.Context) error {
	_, err := c.call(ctx, "set_power", c.transition("on")...)
	return err
}

// TurnOff powers the bulb off.
func (c *Conn) TurnOff(ctx context.Context) error {
	_, err := c.call(ctx, "set_power", c.transition("off")...)
	return err
}

// Toggle flips the power state.
func (c *Conn) Toggle(ctx context.Context) error {
	_, err := c.call(ctx, "toggle")
	return err
}

// SetBrightness sets brightness 1-100.
func (c *Conn) SetBrightness(ctx context.Context, level int) error {
	_, err := c.call(ctx, "set_bright", c.transition(level)...)
	return err
}

// SetColorTemp sets white temperature in kelvin.
func (c *Conn) SetColorTemp(ctx context.Context, kelvin int) error {
	_, err := c.call(ctx, "set_ct_abx", c.transition(kelvin)...)
	return err
}

// SetRGB sets the colour.
func (c *Conn) SetRGB(ctx context.Context, r, g, b int) error {
	_, err := c.call(ctx, "set_rgb", c.transition(device.PackRGB(r, g, b))...)
	return err
}

// Close closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.nc.Close()
}

func (c *Conn) transition(value any) []any {
	return []any{value, c.cfg.Effect, int(c.cfg.Duration / time.Millisecond)}
}

// call sends one request and waits for the reply with the same id.
func (c *Conn) call(ctx context.Context, method string, params ...any) ([]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	deadline := time.Now().Add(c.cfg.CommandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.nc.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	// Unblock a pending read as soon as ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		_ = c.nc.SetDeadline(time.Now()) //nolint:errcheck // best effort wake-up
	})
	defer stop()

	c.nextID++
	id := c.nextID
	if params == nil {
		params = []any{}
	}
	line, err := json.Marshal(request{ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("yeelight: encoding %s: %w", method, err)
	}
	line = append(line, '\r', '\n')

	if _, err := c.nc.Write(line); err != nil {
		return nil, c.ioError(ctx, method, err)
	}

	for {
		raw, err := c.readLine()
		if err != nil {
			return nil, c.ioError(ctx, method, err)
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}

		var rep reply
		if err := json.Unmarshal(raw, &rep); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidResponse, method, err)
		}
		// Notifications carry no id; stale replies carry an older one.
		if rep.ID == nil || *rep.ID != id {
			continue
		}
		if rep.Error != nil {
			return nil, &CommandError{Method: method, Code: rep.Error.Code, Message: rep.Error.Message}
		}
		return rep.Result, nil
	}
}

func (c *Conn) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := c.r.ReadLine()
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
		if len(buf) > maxReplySize {
			return nil, fmt.Errorf("%w: reply exceeds %d bytes", ErrInvalidResponse, maxReplySize)
		}
		if !isPrefix {
			return buf, nil
		}
	}
}

func (c *Conn) ioError(ctx context.Context, method string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("yeelight: %s on %s: %w", method, c.addr, ctxErr)
	}
	return fmt.Errorf("%w: %s on %s: %w", ErrConnectionFailed, method, c.addr, err)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
