// Package api provides the HTTP API for inspecting and editing the tiling.
// GET endpoints are public (read-only).
// POST endpoints require a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/hextile/internal/engine"
	"github.com/talgya/hextile/internal/persistence"
	"github.com/talgya/hextile/internal/render"
	"github.com/talgya/hextile/internal/world"
)

// Server serves a tiling session over HTTP.
type Server struct {
	Sess     *engine.Session
	DB       *persistence.DB // optional; saves are skipped when nil
	SavePath string          // optional YAML save written by POST /save
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// RegenLimit caps regenerations per client per hour. Zero means 6.
	RegenLimit int
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	limit := s.RegenLimit
	if limit <= 0 {
		limit = 6
	}
	regenLimiter := NewRateLimiter(limit, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/rooms", s.handleRooms)
	mux.HandleFunc("/api/v1/cells", s.handleCells)
	mux.HandleFunc("/api/v1/find", s.handleFind)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/records", s.handleRecords)
	mux.HandleFunc("/api/v1/map.png", s.handleMap)

	// Admin endpoints.
	mux.HandleFunc("/api/v1/regenerate", s.adminOnly(RateLimitMiddleware(regenLimiter, s.handleRegenerate)))
	mux.HandleFunc("/api/v1/recolor", s.adminOnly(s.handleRecolor))
	mux.HandleFunc("/api/v1/save", s.adminOnly(s.handleSave))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires POST with a valid bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no HEXTILE_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sess.Status())
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sess.Rooms())
}

// GET /api/v1/cells?room=name. Without room every cell is returned.
func (s *Server) handleCells(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	cells := s.Sess.Cells(room)
	if room != "" && len(cells) == 0 && !s.knownRoom(room) {
		http.Error(w, "unknown room", http.StatusNotFound)
		return
	}
	writeJSON(w, cells)
}

func (s *Server) knownRoom(name string) bool {
	for _, rv := range s.Sess.Rooms() {
		if rv.Name == name {
			return true
		}
	}
	return false
}

// GET /api/v1/find?x=..&y=..
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	p, err := pointParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.Sess.Find(p))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sess.Stats())
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if room := r.URL.Query().Get("room"); room != "" {
		writeJSON(w, s.Sess.RoomRecords(room))
		return
	}
	writeJSON(w, s.Sess.Records())
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	canvas := render.NewCanvas(s.Sess.Settings().Sources(), 0, 0)
	s.Sess.DrawTo(canvas)

	w.Header().Set("Content-Type", "image/png")
	if err := canvas.EncodePNG(w); err != nil {
		slog.Error("map render failed", "error", err)
	}
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	st := s.Sess.Regenerate()
	if s.DB != nil {
		if err := s.DB.SaveSession(s.Sess); err != nil {
			slog.Error("save after regenerate failed", "error", err)
			http.Error(w, "save failed", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, st)
}

type recolorRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s *Server) handleRecolor(w http.ResponseWriter, r *http.Request) {
	var req recolorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	changed := s.Sess.Recolor(world.Point{X: req.X, Y: req.Y})
	if s.DB != nil {
		for _, rc := range changed {
			if err := s.DB.SaveSessionRoom(s.Sess, rc.Room); err != nil {
				slog.Error("save after recolor failed", "room", rc.Room, "error", err)
			}
		}
	}
	writeJSON(w, changed)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil && s.SavePath == "" {
		http.Error(w, "no save target configured", http.StatusServiceUnavailable)
		return
	}
	if s.DB != nil {
		if err := s.DB.SaveSession(s.Sess); err != nil {
			slog.Error("save failed", "error", err)
			http.Error(w, "save failed", http.StatusInternalServerError)
			return
		}
	}
	if s.SavePath != "" {
		if err := s.Sess.SaveFile(s.SavePath); err != nil {
			slog.Error("settings save failed", "path", s.SavePath, "error", err)
			http.Error(w, "save failed", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, map[string]any{
		"run_id":  s.Sess.RunID(),
		"message": "tiles saved",
	})
}

func pointParam(r *http.Request) (world.Point, error) {
	q := r.URL.Query()
	x, err := strconv.ParseFloat(q.Get("x"), 64)
	if err != nil {
		return world.Point{}, fmt.Errorf("bad x: %w", err)
	}
	y, err := strconv.ParseFloat(q.Get("y"), 64)
	if err != nil {
		return world.Point{}, fmt.Errorf("bad y: %w", err)
	}
	return world.Point{X: x, Y: y}, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
