package api

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/nerrad567/homedash/internal/device"
)

func TestListAndGetLights(t *testing.T) {
	srv, _ := testServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/lights", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decode[struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}](t, rec)
	if list.Count != 1 || list.Devices[0].Name != "Desk" {
		t.Errorf("list = %+v", list)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/lights/"+deskID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if d := decode[device.Device](t, rec); d.Room != "Office" {
		t.Errorf("device = %+v", d)
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/lights/10.0.0.9:55443", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown light status = %d, want 404", rec.Code)
	}
}

func TestLightCommands(t *testing.T) {
	tests := []struct {
		name   string
		method string
		action string
		body   any
		want   int
		check  func(t *testing.T, d device.Device)
	}{
		{
			name: "on with brightness", method: http.MethodPost, action: "on",
			body: map[string]int{"brightness": 30}, want: http.StatusOK,
			check: func(t *testing.T, d device.Device) {
				if !d.Power || d.Brightness != 30 {
					t.Errorf("device = %+v, want on at 30", d)
				}
			},
		},
		{
			name: "on without body", method: http.MethodPost, action: "on", want: http.StatusOK,
			check: func(t *testing.T, d device.Device) {
				if !d.Power {
					t.Error("device not on")
				}
			},
		},
		{name: "off", method: http.MethodPost, action: "off", want: http.StatusOK},
		{
			name: "toggle", method: http.MethodPost, action: "toggle", want: http.StatusOK,
			check: func(t *testing.T, d device.Device) {
				if !d.Power {
					t.Error("toggle from off should turn on")
				}
			},
		},
		{
			name: "brightness", method: http.MethodPut, action: "brightness",
			body: map[string]int{"brightness": 75}, want: http.StatusOK,
			check: func(t *testing.T, d device.Device) {
				if d.Brightness != 75 {
					t.Errorf("brightness = %d", d.Brightness)
				}
			},
		},
		{name: "brightness out of range", method: http.MethodPut, action: "brightness", body: map[string]int{"brightness": 0}, want: http.StatusBadRequest},
		{name: "brightness missing", method: http.MethodPut, action: "brightness", body: map[string]int{}, want: http.StatusBadRequest},
		{
			name: "temperature", method: http.MethodPut, action: "temperature",
			body: map[string]int{"kelvin": 2700}, want: http.StatusOK,
			check: func(t *testing.T, d device.Device) {
				if d.ColorTemp != 2700 {
					t.Errorf("color temp = %d", d.ColorTemp)
				}
			},
		},
		{name: "temperature out of range", method: http.MethodPut, action: "temperature", body: map[string]int{"kelvin": 9000}, want: http.StatusBadRequest},
		{
			name: "rgb", method: http.MethodPut, action: "rgb",
			body: map[string]int{"red": 255, "green": 0, "blue": 0}, want: http.StatusOK,
			check: func(t *testing.T, d device.Device) {
				if d.HexRGB() != "#ff0000" {
					t.Errorf("rgb = %s", d.HexRGB())
				}
			},
		},
		{name: "rgb incomplete", method: http.MethodPut, action: "rgb", body: map[string]int{"red": 1}, want: http.StatusBadRequest},
		{name: "rgb out of range", method: http.MethodPut, action: "rgb", body: map[string]int{"red": 256, "green": 0, "blue": 0}, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := testServer(t)
			rec := do(t, srv, tt.method, "/api/v1/lights/"+deskID+"/"+tt.action, tt.body, "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.check == nil {
				return
			}
			res := decode[device.Result](t, rec)
			if !res.OK {
				t.Fatalf("result = %+v, want success", res)
			}
			tt.check(t, res.Device)
		})
	}
}

func TestLightCommand_DeviceFailure(t *testing.T) {
	srv, env := testServer(t)
	env.bulb.setFail(errors.New("bulb said no"))

	rec := do(t, srv, http.MethodPost, "/api/v1/lights/"+deskID+"/on", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	res := decode[device.Result](t, rec)
	if res.OK || res.Message == "" || res.DeviceID != deskID {
		t.Errorf("result = %+v", res)
	}
}

func TestLightCommand_UnreachableAddress(t *testing.T) {
	srv, _ := testServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/lights/10.0.0.50/toggle", nil, "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if res := decode[device.Result](t, rec); res.DeviceID != "10.0.0.50:55443" {
		t.Errorf("device id = %q, want default port applied", res.DeviceID)
	}
}

func TestScanAndRefreshLights(t *testing.T) {
	srv, _ := testServer(t)

	if rec := do(t, srv, http.MethodPost, "/api/v1/lights/scan?timeout=bogus", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad timeout status = %d, want 400", rec.Code)
	}

	rec := do(t, srv, http.MethodPost, "/api/v1/lights/scan?timeout=0.05", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("scan status = %d (body %s)", rec.Code, rec.Body.String())
	}
	found := decode[struct {
		Devices []device.Device `json:"devices"`
	}](t, rec)
	if len(found.Devices) != 1 || !found.Devices[0].Connected {
		t.Errorf("scan = %+v", found.Devices)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/lights/refresh", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", rec.Code)
	}
}

func TestScanLights_NothingFound(t *testing.T) {
	empty := device.NewRegistry(&testDriver{bulbs: map[string]*testBulb{}})
	srv, _ := testServer(t, func(d *Deps) { d.Registry = empty })

	rec := do(t, srv, http.MethodPost, "/api/v1/lights/scan?timeout=0.05", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("scan status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); !strings.Contains(body, `"devices":[]`) || !strings.Contains(body, `"count":0`) {
		t.Errorf("body = %s, want an empty device list", body)
	}
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"3s", false},
		{"1.5", false},
		{"0", true},
		{"-2s", true},
		{"soon", true},
	}
	for _, tt := range tests {
		_, err := parseTimeout(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTimeout(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
