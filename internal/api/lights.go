package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homedash/internal/audit"
	"github.com/nerrad567/homedash/internal/device"
)

// maxScanTimeout caps the discovery window a client may request.
const maxScanTimeout = 30 * time.Second

type brightnessRequest struct {
	Brightness *int `json:"brightness"`
}

type temperatureRequest struct {
	Kelvin *int `json:"kelvin"`
}

type rgbRequest struct {
	Red   *int `json:"red"`
	Green *int `json:"green"`
	Blue  *int `json:"blue"`
}

// handleListLights returns every known light.
func (s *Server) handleListLights(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.GetAll()
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetLight returns one light.
func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleScanLights runs a discovery pass and returns what answered.
//
// Query parameters:
//   - timeout: listen window, as a duration ("3s") or seconds ("3")
func (s *Server) handleScanLights(w http.ResponseWriter, r *http.Request) {
	timeout := s.lightsCfg.DiscoveryTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := parseTimeout(raw)
		if err != nil {
			writeBadRequest(w, "timeout must be a positive duration")
			return
		}
		timeout = d
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timeout = min(timeout, maxScanTimeout)

	found, err := s.registry.Discover(r.Context(), timeout)
	if err != nil {
		s.logger.Warn("light discovery failed", "error", err)
		writeBadGateway(w, "discovery failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": found, "count": len(found)})
}

// handleRefreshLights re-reads every light and returns the result.
func (s *Server) handleRefreshLights(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.RefreshAll(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "refresh interrupted")
		return
	}
	devices := s.registry.GetAll()
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleLightOn powers a light on, optionally at {"brightness": n}.
func (s *Server) handleLightOn(w http.ResponseWriter, r *http.Request) {
	var req brightnessRequest
	if err := decodeOptional(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	var (
		res device.Result
		err error
	)
	if req.Brightness != nil {
		res, err = s.registry.TurnOnAt(r.Context(), id, *req.Brightness)
	} else {
		res, err = s.registry.TurnOn(r.Context(), id)
	}
	s.writeCommandResult(w, r, res, err)
}

func (s *Server) handleLightOff(w http.ResponseWriter, r *http.Request) {
	res, err := s.registry.TurnOff(r.Context(), chi.URLParam(r, "id"))
	s.writeCommandResult(w, r, res, err)
}

func (s *Server) handleLightToggle(w http.ResponseWriter, r *http.Request) {
	res, err := s.registry.Toggle(r.Context(), chi.URLParam(r, "id"))
	s.writeCommandResult(w, r, res, err)
}

// handleLightBrightness sets {"brightness": 1-100}.
func (s *Server) handleLightBrightness(w http.ResponseWriter, r *http.Request) {
	var req brightnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Brightness == nil {
		writeBadRequest(w, "brightness is required")
		return
	}
	res, err := s.registry.SetBrightness(r.Context(), chi.URLParam(r, "id"), *req.Brightness)
	s.writeCommandResult(w, r, res, err)
}

// handleLightTemperature sets {"kelvin": 1700-6500}.
func (s *Server) handleLightTemperature(w http.ResponseWriter, r *http.Request) {
	var req temperatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Kelvin == nil {
		writeBadRequest(w, "kelvin is required")
		return
	}
	res, err := s.registry.SetColorTemp(r.Context(), chi.URLParam(r, "id"), *req.Kelvin)
	s.writeCommandResult(w, r, res, err)
}

// handleLightRGB sets {"red", "green", "blue"}, each 0-255.
func (s *Server) handleLightRGB(w http.ResponseWriter, r *http.Request) {
	var req rgbRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Red == nil || req.Green == nil || req.Blue == nil {
		writeBadRequest(w, "red, green and blue are required")
		return
	}
	res, err := s.registry.SetRGB(r.Context(), chi.URLParam(r, "id"), *req.Red, *req.Green, *req.Blue)
	s.writeCommandResult(w, r, res, err)
}

// writeCommandResult answers 200 for a successful command and 502 with the
// structured result when the device failed. Every command that reached the
// device is audited.
func (s *Server) writeCommandResult(w http.ResponseWriter, r *http.Request, res device.Result, err error) {
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	details := map[string]any{"command": res.Command, "success": res.OK}
	if res.Message != "" {
		details["message"] = res.Message
	}
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionCommand,
		EntityType: audit.EntityLight,
		EntityID:   res.DeviceID,
		Details:    details,
	})
	if !res.OK {
		writeJSON(w, http.StatusBadGateway, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeDeviceError maps device errors to responses.
func (s *Server) writeDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "light not found")
	case errors.Is(err, device.ErrInvalidBrightness),
		errors.Is(err, device.ErrInvalidColorTemp),
		errors.Is(err, device.ErrInvalidRGB),
		errors.Is(err, device.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, device.ErrUnsupported):
		writeError(w, http.StatusBadRequest, ErrCodeUnsupported, err.Error())
	default:
		s.logger.Error("light command error", "error", err)
		writeInternalError(w, "light command failed")
	}
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// parseTimeout accepts "1.5s" style durations or plain seconds.
func parseTimeout(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, err
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		return 0, errors.New("timeout must be positive")
	}
	return d, nil
}
