// Package api exposes the decoder state over HTTP/JSON, plus CSV export
// downloads and the device command endpoint.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/airsense.report/internal/export"
	"github.com/banshee-data/airsense.report/internal/serialmux"
	"github.com/banshee-data/airsense.report/internal/telemetry"
	"github.com/banshee-data/airsense.report/internal/version"
)

// ANSI escape codes for request log coloring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	dec *telemetry.Decoder
	m   serialmux.SerialMuxInterface
}

func NewServer(dec *telemetry.Decoder, m serialmux.SerialMuxInterface) *Server {
	return &Server{dec: dec, m: m}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/schema", s.showSchema)
	mux.HandleFunc("/schema/default", s.assumeDefaultSchema)
	mux.HandleFunc("/schema/custom", s.setCustomSchema)
	mux.HandleFunc("/snapshot", s.showSnapshot)
	mux.HandleFunc("/series", s.showSeries)
	mux.HandleFunc("/sensors", s.showSensors)
	mux.HandleFunc("/stats", s.showStats)
	mux.HandleFunc("/rawlog", s.showRawLog)
	mux.HandleFunc("/export/raw", s.exportRaw)
	mux.HandleFunc("/export/series", s.exportSeries)
	mux.HandleFunc("/command", s.sendCommandHandler)
	mux.HandleFunc("/health", s.showHealth)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

func (s *Server) showSchema(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	schema := s.dec.CurrentSchema()
	s.writeJSON(w, map[string]any{
		"set":    schema != nil,
		"schema": schema,
	})
}

func (s *Server) assumeDefaultSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.dec.AssumeDefaultSchema()
	s.writeJSON(w, map[string]any{"schema": s.dec.CurrentSchema()})
}

func (s *Server) setCustomSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := s.dec.SetCustomSchema(r.FormValue("schema")); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, map[string]any{"schema": s.dec.CurrentSchema()})
}

func (s *Server) showSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	s.writeJSON(w, s.dec.Snapshot())
}

func (s *Server) showSeries(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	key := r.URL.Query().Get("sensor")
	if key == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'sensor' parameter")
		return
	}
	s.writeJSON(w, s.dec.Series(key))
}

func (s *Server) showSensors(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	s.writeJSON(w, s.dec.PresentSensors())
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	s.writeJSON(w, s.dec.SeriesStats())
}

func (s *Server) showRawLog(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	s.writeJSON(w, s.dec.RawLog())
}

func (s *Server) writeCSV(w http.ResponseWriter, filename, table string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	io.WriteString(w, table)
}

func (s *Server) exportRaw(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	table, err := export.RawLog(s.dec.RawLog())
	if errors.Is(err, export.ErrNoData) {
		s.writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeCSV(w, "rawlog.csv", table)
}

func (s *Server) exportSeries(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	bindings, byKey := s.dec.AllSeries()
	table, err := export.Series(bindings, byKey)
	if errors.Is(err, export.ErrNoData) {
		s.writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeCSV(w, "series.csv", table)
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	command := r.FormValue("command")
	if command == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing command")
		return
	}

	if err := s.m.SendCommand(command); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to send command")
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	lines, decoded, rejected := s.dec.Counters()
	s.writeJSON(w, map[string]any{
		"version":       version.String(),
		"session_id":    s.dec.SessionID(),
		"schema_set":    s.dec.CurrentSchema() != nil,
		"lines_total":   lines,
		"rows_decoded":  decoded,
		"rows_rejected": rejected,
	})
}
