// Package api exposes the tracker's HTTP surface: live record streams
// over SSE and websocket, stored session queries and pipeline counters.
//
// Streamed and stored records travel as 22-value CSV lines (one record
// per line, channel order documented in the gaze package) because
// records legitimately carry NaN, which JSON cannot represent. JSON is
// used only for NaN-free payloads.
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/gaze.report/internal/gaze"
	"github.com/banshee-data/gaze.report/internal/gazedb"
	"github.com/banshee-data/gaze.report/internal/gazemux"
	"github.com/banshee-data/gaze.report/internal/httputil"
	"github.com/banshee-data/gaze.report/internal/monitoring"
	"github.com/banshee-data/gaze.report/internal/version"
)

type Server struct {
	mux   *gazemux.Mux
	db    *gazedb.DB
	stats *gaze.PipelineStats
	opts  gaze.Options
}

// NewServer wires the HTTP surface to the record mux, the database and
// the pipeline counters. db may be nil when the daemon runs without
// persistence; the session endpoints then report 503.
func NewServer(m *gazemux.Mux, db *gazedb.DB, stats *gaze.PipelineStats, opts gaze.Options) *Server {
	return &Server{
		mux:   m,
		db:    db,
		stats: stats,
		opts:  opts,
	}
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	// Handle the home page
	w.Write([]byte("Welcome to the Gaze Tracker Server!"))
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stream", s.streamSSE)
	mux.HandleFunc("/api/stream/ws", s.streamWebsocket)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/records", s.listRecords)
	mux.HandleFunc("/api/stats", s.pipelineStats)
	mux.HandleFunc("/debug/", s.debugStatus)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

// streamSSE issues Server-Side Events carrying one CSV record line per
// event for as long as the client stays connected.
func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := s.mux.Subscribe(0)
	defer s.mux.Unsubscribe(id)

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case rec, ok := <-c:
			if !ok {
				// Channel closed, exit gracefully
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", csvLine(rec)); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	// The daemon serves local tooling; browser origin checks add nothing.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamWebsocket pushes one text message per record over a websocket.
func (s *Server) streamWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, c := s.mux.Subscribe(0)
	defer s.mux.Unsubscribe(id)

	// Drain the client side so close frames are seen promptly.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case rec, ok := <-c:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(csvLine(rec))); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.ServiceUnavailable(w, "no database configured")
		return
	}

	sessions, err := s.db.Sessions()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve sessions: %v", err))
		return
	}

	type sessionJSON struct {
		ID           string  `json:"id"`
		StartedAt    string  `json:"started_at"`
		ScreenWidth  float64 `json:"screen_width"`
		ScreenHeight float64 `json:"screen_height"`
		Source       string  `json:"source"`
		Records      int64   `json:"records"`
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionJSON{
			ID:           sess.ID,
			StartedAt:    sess.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			ScreenWidth:  sess.ScreenWidth,
			ScreenHeight: sess.ScreenHeight,
			Source:       sess.Source,
			Records:      sess.Records,
		})
	}
	httputil.WriteJSONOK(w, out)
}

// listRecords streams a stored session's records as CSV lines in
// emission order. The session is selected with ?session=<id>.
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		httputil.ServiceUnavailable(w, "no database configured")
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		httputil.BadRequest(w, "missing session parameter")
		return
	}

	records, err := s.db.Records(sessionID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve records: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	for _, rec := range records {
		if _, err := fmt.Fprintln(w, csvLine(rec)); err != nil {
			return
		}
	}
}

func (s *Server) pipelineStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	samplesIn, recordsOut, nanSamples, timingAnomalies, since := s.stats.Snapshot()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"samples_in":       samplesIn,
		"records_out":      recordsOut,
		"nan_samples":      nanSamples,
		"timing_anomalies": timingAnomalies,
		"uptime_seconds":   since.Seconds(),
		"subscribers":      s.mux.Subscribers(),
	})
}

// debugStatus reports a plain-text operational snapshot: counters,
// per-subscriber drops and the active pipeline options.
func (s *Server) debugStatus(w http.ResponseWriter, r *http.Request) {
	samplesIn, recordsOut, nanSamples, timingAnomalies, since := s.stats.Snapshot()
	fmt.Fprintf(w, "version: %s (%s)\n", version.Version, version.GitSHA)
	fmt.Fprintf(w, "uptime: %s\n", since.Round(time.Millisecond))
	fmt.Fprintf(w, "samples in: %d\n", samplesIn)
	fmt.Fprintf(w, "records out: %d\n", recordsOut)
	fmt.Fprintf(w, "nan samples: %d\n", nanSamples)
	fmt.Fprintf(w, "timing anomalies: %d\n", timingAnomalies)
	fmt.Fprintf(w, "subscribers: %d\n", s.mux.Subscribers())
	for id, n := range s.mux.Dropped() {
		fmt.Fprintf(w, "subscriber %s dropped: %d\n", id, n)
	}
	fmt.Fprintf(w, "screen: %gx%g\n", s.opts.Screen.Width, s.opts.Screen.Height)
	fmt.Fprintf(w, "fixation classification: %t\n", s.opts.EnableFixation)
	if s.opts.EnableFixation {
		fmt.Fprintf(w, "velocity threshold: %g px/s\n", s.opts.VelocityThreshold)
	}
}

// csvLine flattens a record to its 22-value wire line. NaN channels are
// written literally; strconv.ParseFloat reads them back.
func csvLine(rec gaze.Record) string {
	channels := rec.Channels()
	parts := make([]string, len(channels))
	for i, v := range channels {
		parts[i] = gaze.FormatChannel(v)
	}
	return strings.Join(parts, ",")
}
