package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/orbit.report/internal/db"
	"github.com/banshee-data/orbit.report/internal/ingest"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db       *db.DB
	sched    *ingest.Scheduler
	source   string
	interval time.Duration
}

func NewServer(database *db.DB, sched *ingest.Scheduler, source string, interval time.Duration) *Server {
	return &Server{
		db:       database,
		sched:    sched,
		source:   source,
		interval: interval,
	}
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
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
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
	mux.HandleFunc("/api/objects", s.listObjects)
	mux.HandleFunc("/api/objects/", s.objectSubroutes)
	mux.HandleFunc("/api/maneuvers", s.listManeuvers)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/sync", s.triggerSync)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// objectListResponse wraps the object list with paging metadata so
// clients can page through the catalog without a separate count call.
type objectListResponse struct {
	Objects []db.TrackedObject `json:"objects"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filter := db.ObjectFilter{
		OrbitClass: r.URL.Query().Get("class"),
		Name:       r.URL.Query().Get("name"),
		Limit:      db.MaxListLimit,
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		filter.Limit = parsed
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'offset' parameter")
			return
		}
		filter.Offset = parsed
	}

	objects, err := s.db.ListObjects(r.Context(), filter)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve objects: %v", err))
		return
	}
	total, err := s.db.CountObjects(r.Context(), filter)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to count objects: %v", err))
		return
	}

	resp := objectListResponse{
		Objects: objects,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}
	if resp.Limit > db.MaxListLimit {
		resp.Limit = db.MaxListLimit
	}
	if resp.Objects == nil {
		resp.Objects = []db.TrackedObject{}
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write objects")
		return
	}
}

// objectSubroutes dispatches /api/objects/{norad_id} and
// /api/objects/{norad_id}/history.
func (s *Server) objectSubroutes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/objects/")
	idPart, sub, _ := strings.Cut(rest, "/")

	noradID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || noradID < 1 {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid catalog id")
		return
	}

	switch sub {
	case "":
		s.showObject(w, r, noradID)
	case "history":
		s.showObjectHistory(w, r, noradID)
	default:
		s.writeJSONError(w, http.StatusNotFound, "Not found")
	}
}

// objectDetail pairs the catalog metadata with the freshest elements.
type objectDetail struct {
	Object         db.TrackedObject    `json:"object"`
	LatestSnapshot *db.ElementSnapshot `json:"latest_snapshot"`
}

func (s *Server) showObject(w http.ResponseWriter, r *http.Request, noradID int64) {
	obj, err := s.db.GetObjectByNoradID(r.Context(), noradID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve object: %v", err))
		return
	}
	if obj == nil {
		s.writeJSONError(w, http.StatusNotFound,
			fmt.Sprintf("No object with catalog id %d", noradID))
		return
	}

	latest, err := s.db.LatestSnapshot(r.Context(), obj.ID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve latest snapshot: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(objectDetail{Object: *obj, LatestSnapshot: latest}); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write object")
		return
	}
}

func (s *Server) showObjectHistory(w http.ResponseWriter, r *http.Request, noradID int64) {
	obj, err := s.db.GetObjectByNoradID(r.Context(), noradID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve object: %v", err))
		return
	}
	if obj == nil {
		s.writeJSONError(w, http.StatusNotFound,
			fmt.Sprintf("No object with catalog id %d", noradID))
		return
	}

	var rng db.SnapshotRange
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'since' parameter, want RFC3339")
			return
		}
		rng.Since = &t
	}
	if until := r.URL.Query().Get("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'until' parameter, want RFC3339")
			return
		}
		rng.Until = &t
	}

	snapshots, err := s.db.ListSnapshots(r.Context(), obj.ID, rng)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve history: %v", err))
		return
	}
	if snapshots == nil {
		snapshots = []db.ElementSnapshot{}
	}

	if err := json.NewEncoder(w).Encode(snapshots); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write history")
		return
	}
}

func (s *Server) listManeuvers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var filter db.ManeuverFilter

	if id := r.URL.Query().Get("norad_id"); id != "" {
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'norad_id' parameter")
			return
		}
		filter.NoradID = parsed
	}
	if mc := r.URL.Query().Get("min_confidence"); mc != "" {
		parsed, err := strconv.ParseFloat(mc, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'min_confidence' parameter")
			return
		}
		filter.MinConfidence = parsed
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'since' parameter, want RFC3339")
			return
		}
		filter.Since = &t
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		filter.Limit = parsed
	}

	events, err := s.db.ListManeuvers(r.Context(), filter)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve maneuvers: %v", err))
		return
	}
	if events == nil {
		events = []db.ManeuverEvent{}
	}

	if err := json.NewEncoder(w).Encode(events); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write maneuvers")
		return
	}
}

// statusResponse reports pipeline health. The pipeline is healthy when
// the last successful cycle is younger than twice the sync interval.
type statusResponse struct {
	Status          string     `json:"status"` // "healthy", "stale", or "no_data"
	Healthy         bool       `json:"healthy"`
	SyncRunning     bool       `json:"sync_running"`
	ObjectsTracked  int        `json:"objects_tracked"`
	SyncInterval    string     `json:"sync_interval"`
	LastAttempt     *time.Time `json:"last_attempt"`
	LastSuccess     *time.Time `json:"last_success"`
	LastError       *string    `json:"last_error,omitempty"`
	LastRecordCount int        `json:"last_record_count"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp := statusResponse{
		Status:       "no_data",
		SyncRunning:  s.sched != nil && s.sched.Running(),
		SyncInterval: s.interval.String(),
	}

	total, err := s.db.CountObjects(r.Context(), db.ObjectFilter{})
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to count objects: %v", err))
		return
	}
	resp.ObjectsTracked = total

	latest, err := s.db.LatestLineage(r.Context(), s.source)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve lineage: %v", err))
		return
	}
	if latest != nil {
		resp.LastAttempt = &latest.StartedAt
		resp.LastError = latest.Error
		resp.LastRecordCount = latest.RecordsProcessed
	}

	success, err := s.db.LatestSuccessfulLineage(r.Context(), s.source)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve lineage: %v", err))
		return
	}
	if success != nil {
		resp.LastSuccess = &success.StartedAt
		if time.Since(success.StartedAt) <= 2*s.interval {
			resp.Status = "healthy"
			resp.Healthy = true
		} else {
			resp.Status = "stale"
		}
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write status")
		return
	}
}

func (s *Server) triggerSync(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.sched == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Sync scheduler not running")
		return
	}

	// Trigger against the scheduler's lifetime, not this request: the
	// cycle must outlive the HTTP exchange.
	if !s.sched.TriggerNow(context.Background()) {
		s.writeJSONError(w, http.StatusConflict, "A sync cycle is already running")
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}
