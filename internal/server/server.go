// internal/server/server.go
package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tamzrod/line-inspector/internal/status"
)

// Operator is the part of the system the HTTP surface drives.
type Operator interface {
	Status() status.Report
	EnsureDetection() error
	SetDetection(on bool)
	ResetCounters()
	Stream() http.Handler
}

// Result is the body of every operator command response.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// DetectionStatus is the body of GET /api/detection_status.
type DetectionStatus struct {
	DetectionEnabled bool                 `json:"detection_enabled"`
	LastDetection    status.LastDetection `json:"last_detection"`
}

// New returns the HTTP handler. Every route is read-only over shared state
// except the three commands, which go through the operator.
func New(op Operator, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{op: op, log: log}

	mux := http.NewServeMux()
	mux.Handle("GET /video_feed", op.Stream())
	mux.HandleFunc("GET /status", h.status)
	mux.HandleFunc("GET /api/detection_status", h.detectionStatus)
	mux.HandleFunc("POST /start_detection", h.start)
	mux.HandleFunc("POST /stop_detection", h.stop)
	mux.HandleFunc("POST /api/reset_counters", h.reset)
	return mux
}

type handler struct {
	op  Operator
	log *zap.Logger
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, h.op.Status())
}

func (h *handler) detectionStatus(w http.ResponseWriter, r *http.Request) {
	rep := h.op.Status()
	h.write(w, http.StatusOK, DetectionStatus{
		DetectionEnabled: rep.DetectionEnabled,
		LastDetection:    rep.LastDetection,
	})
}

func (h *handler) start(w http.ResponseWriter, r *http.Request) {
	if err := h.op.EnsureDetection(); err != nil {
		h.log.Error("start detection failed", zap.Error(err))
		h.write(w, http.StatusServiceUnavailable, Result{Message: err.Error()})
		return
	}
	h.op.SetDetection(true)
	h.log.Info("detection enabled")
	h.write(w, http.StatusOK, Result{Success: true, Message: "Detection started"})
}

func (h *handler) stop(w http.ResponseWriter, r *http.Request) {
	h.op.SetDetection(false)
	h.log.Info("detection disabled")
	h.write(w, http.StatusOK, Result{Success: true, Message: "Detection stopped"})
}

func (h *handler) reset(w http.ResponseWriter, r *http.Request) {
	h.op.ResetCounters()
	h.write(w, http.StatusOK, Result{Success: true, Message: "Counters reset"})
}

func (h *handler) write(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("response encode failed", zap.Error(err))
	}
}
