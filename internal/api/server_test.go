package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/homedash/internal/auth"
	"github.com/nerrad567/homedash/internal/dashboard"
	"github.com/nerrad567/homedash/internal/device"
	"github.com/nerrad567/homedash/internal/infrastructure/config"
	"github.com/nerrad567/homedash/internal/infrastructure/logging"
	"github.com/nerrad567/homedash/internal/state"
)

const (
	testSecret = "test-secret-key-at-least-32-characters-long"
	deskID     = "10.0.0.2:55443"
)

// testBulb is the simulated light behind a testConn.
type testBulb struct {
	mu    sync.Mutex
	props device.Properties
	fail  error
}

func (b *testBulb) apply(mutate func(device.Properties)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	mutate(b.props)
	return nil
}

func (b *testBulb) setFail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = err
}

type testConn struct{ b *testBulb }

func (c testConn) Properties(context.Context) (device.Properties, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	out := make(device.Properties, len(c.b.props))
	for k, v := range c.b.props {
		out[k] = v
	}
	return out, nil
}

func (c testConn) Close() error { return nil }

func (c testConn) TurnOn(context.Context) error {
	return c.b.apply(func(p device.Properties) { p[device.PropPower] = "on" })
}

func (c testConn) TurnOff(context.Context) error {
	return c.b.apply(func(p device.Properties) { p[device.PropPower] = "off" })
}

func (c testConn) Toggle(context.Context) error {
	return c.b.apply(func(p device.Properties) {
		if p[device.PropPower] == "on" {
			p[device.PropPower] = "off"
		} else {
			p[device.PropPower] = "on"
		}
	})
}

func (c testConn) SetBrightness(_ context.Context, level int) error {
	return c.b.apply(func(p device.Properties) { p[device.PropBright] = strconv.Itoa(level) })
}

func (c testConn) SetColorTemp(_ context.Context, kelvin int) error {
	return c.b.apply(func(p device.Properties) { p[device.PropCT] = strconv.Itoa(kelvin) })
}

func (c testConn) SetRGB(_ context.Context, r, g, b int) error {
	return c.b.apply(func(p device.Properties) { p[device.PropRGB] = strconv.Itoa(device.PackRGB(r, g, b)) })
}

// testDriver serves a fixed set of bulbs and announces all of them.
type testDriver struct {
	bulbs map[string]*testBulb
}

func (d *testDriver) Name() string { return "yeelight" }

func (d *testDriver) Discover(context.Context, time.Duration) ([]device.Announcement, error) {
	out := make([]device.Announcement, 0, len(d.bulbs))
	for addr := range d.bulbs {
		out = append(out, device.Announcement{Addr: addr, Properties: device.Properties{device.PropPower: "off"}})
	}
	return out, nil
}

func (d *testDriver) Dial(_ context.Context, addr string) (device.Conn, error) {
	b, ok := d.bulbs[addr]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return testConn{b}, nil
}

// fakeAgent returns a canned dashboard.
type fakeAgent struct {
	mu  sync.Mutex
	raw json.RawMessage
	err error
}

func (a *fakeAgent) RequestDashboard(context.Context, string, string) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.raw, a.err
}

type testEnv struct {
	store *state.Store
	bulb  *testBulb
	agent *fakeAgent
}

type serverOption func(*Deps)

func withJWT() serverOption {
	return func(d *Deps) {
		d.Security.JWT = config.JWTConfig{Enabled: true, Secret: testSecret, AccessTokenTTL: 15}
	}
}

func withDefaultUser(user string) serverOption {
	return func(d *Deps) { d.Dashboard.DefaultUser = user }
}

// testServer creates a Server over a real registry, store and composer with
// a single simulated light and a fake agent.
func testServer(t *testing.T, opts ...serverOption) (*Server, *testEnv) {
	t.Helper()

	bulb := &testBulb{props: device.Properties{
		device.PropPower:  "off",
		device.PropBright: "50",
		device.PropCT:     "4000",
	}}
	registry := device.NewRegistry(&testDriver{bulbs: map[string]*testBulb{deskID: bulb}})
	registry.SetDefaultPort(55443)
	if _, err := registry.Add(deskID, device.Meta{Name: "Desk", Room: "Office"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	store := state.NewStore(state.NewMemoryBackend(), "")
	composer := dashboard.NewComposer(store, dashboard.Options{})
	agent := &fakeAgent{}
	actions := dashboard.NewActionHandler(agent, store, composer)

	log := logging.Discard()
	deps := Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Lights:   config.LightsConfig{DiscoveryTimeout: 50 * time.Millisecond},
		Logger:   log,
		Registry: registry,
		States:   store,
		Composer: composer,
		Actions:  actions,
		Version:  "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.hub = NewHub(srv.wsCfg, composer, log)
	go srv.hub.Run(ctx)

	return srv, &testEnv{store: store, bulb: bulb, agent: agent}
}

// do runs one request through the full router.
func do(t *testing.T, srv *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encoding body: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func token(t *testing.T, user string, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(user, role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return tok
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no deps should fail")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without registry should fail")
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, withJWT())

	rec := do(t, srv, http.MethodGet, "/api/v1/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["version"] != "test" || body["state"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/health", nil, "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want client value", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := testServer(t)
	srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard", nil)
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for unknown origin = %q, want empty", got)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := testServer(t, withJWT())
	niko := token(t, "niko", auth.RoleUser)
	admin := token(t, "root", auth.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/dashboard?user_name=niko", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/dashboard?user_name=niko", "nope", http.StatusUnauthorized},
		{"own dashboard", http.MethodGet, "/api/v1/dashboard?user_name=niko", niko, http.StatusOK},
		{"subject as default user", http.MethodGet, "/api/v1/dashboard", niko, http.StatusOK},
		{"other dashboard", http.MethodGet, "/api/v1/dashboard?user_name=anna", niko, http.StatusForbidden},
		{"admin any dashboard", http.MethodGet, "/api/v1/dashboard?user_name=anna", admin, http.StatusOK},
		{"other state", http.MethodGet, "/api/v1/users/anna/state", niko, http.StatusForbidden},
		{"user lists lights", http.MethodGet, "/api/v1/lights", niko, http.StatusOK},
		{"user cannot scan", http.MethodPost, "/api/v1/lights/scan", niko, http.StatusForbidden},
		{"admin scans", http.MethodPost, "/api/v1/lights/scan", admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, nil, tt.token)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if e := decode[Error](t, rec); e.Code != ErrCodeInternal {
		t.Errorf("code = %q", e.Code)
	}
}
