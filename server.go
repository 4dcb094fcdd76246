package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"i4.energy/across/wifigw/at"
	"i4.energy/across/wifigw/wifi"
)

// Server handles incoming HTTP requests for interacting with the
// configured WiFi device instance
type Server struct {
	Logger  *slog.Logger
	Device  *wifi.Device
	Hub     *Hub
	Metrics *Metrics
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /ip", s.handleIP)
	mux.HandleFunc("GET /ap", s.handleAP)
	mux.HandleFunc("GET /mode", s.handleModeGet)
	mux.HandleFunc("POST /mode", s.handleModeSet)
	mux.HandleFunc("GET /scan", s.handleScan)
	mux.HandleFunc("POST /join", s.handleJoin)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /ws", s.Hub.ServeWS)
	mux.Handle("GET /metrics", promhttp.Handler())

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	mux.ServeHTTP(rec, r)
	s.Metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
}

// statusRecorder captures the status code a handler wrote so the
// request can be counted.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer; the websocket upgrade
// needs it.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// handleStatus reports the module's connection status together with the
// driver's lifecycle state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Device.Status()
	if err != nil {
		s.Logger.Error("Failed to query status", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type StatusResponse struct {
		Status      int    `json:"status"`
		Description string `json:"description"`
		Connected   bool   `json:"connected"`
		State       string `json:"state"`
	}
	s.sendJSON(w, StatusResponse{
		Status:      int(status),
		Description: status.String(),
		Connected:   status.Associated(),
		State:       s.Device.State().String(),
	})
}

func (s *Server) handleIP(w http.ResponseWriter, r *http.Request) {
	ip, err := s.Device.LocalIP()
	if err != nil {
		s.Logger.Error("Failed to query station address", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type IPResponse struct {
		IP string `json:"ip"`
	}
	s.sendJSON(w, IPResponse{IP: ip})
}

func (s *Server) handleAP(w http.ResponseWriter, r *http.Request) {
	ap, err := s.Device.RemoteAP()
	if err != nil {
		s.Logger.Error("Failed to query access point", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type APResponse struct {
		Fields []at.Field `json:"fields"`
	}
	s.sendJSON(w, APResponse{Fields: ap})
}

func (s *Server) handleModeGet(w http.ResponseWriter, r *http.Request) {
	mode, err := s.Device.Mode()
	if err != nil {
		s.Logger.Error("Failed to query mode", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type ModeResponse struct {
		Mode        int    `json:"mode"`
		Description string `json:"description"`
	}
	s.sendJSON(w, ModeResponse{Mode: int(mode), Description: mode.String()})
}

func (s *Server) handleModeSet(w http.ResponseWriter, r *http.Request) {
	type ModeRequest struct {
		Mode int `json:"mode"`
	}

	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Device.SetMode(wifi.Mode(req.Mode)); err != nil {
		if errors.Is(err, wifi.ErrInvalidMode) {
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.Logger.Error("Failed to set mode", "error", err, "mode", req.Mode)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("Mode switched", "mode", wifi.Mode(req.Mode).String())
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	networks, err := s.Device.Scan()
	if err != nil {
		s.Logger.Error("Failed to scan", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if networks == nil {
		networks = []wifi.AccessPoint{}
	}

	type ScanResponse struct {
		Count    int                `json:"count"`
		Networks []wifi.AccessPoint `json:"networks"`
	}
	s.sendJSON(w, ScanResponse{Count: len(networks), Networks: networks})
}

// handleJoin associates the module with a network. The password travels
// to the module and is never logged.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	type JoinRequest struct {
		SSID     string `json:"ssid"`
		Password string `json:"password"`
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.SSID == "" {
		s.sendError(w, "the 'ssid' field is required", http.StatusBadRequest)
		return
	}

	if err := s.Device.JoinAP(wifi.Secrets{SSID: req.SSID, Password: req.Password}); err != nil {
		s.Logger.Error("Failed to join network", "error", err, "ssid", req.SSID)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("Joined network", "ssid", req.SSID)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Device.SoftReset(); err != nil {
		s.Logger.Error("Failed to reset module", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("Module reset")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	if host == "" {
		s.sendError(w, "the 'host' query parameter is required", http.StatusBadRequest)
		return
	}

	rtt, ok, err := s.Device.Ping(host)
	if err != nil {
		s.Logger.Error("Failed to ping", "error", err, "host", host)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result := pingResult{Host: host, OK: ok}
	if ok {
		result.RTTMs = rtt.Milliseconds()
	}
	s.sendJSON(w, result)
}
