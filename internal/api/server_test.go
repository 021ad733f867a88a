package api

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/talgya/hextile/internal/config"
	"github.com/talgya/hextile/internal/engine"
	"github.com/talgya/hextile/internal/persistence"
)

func newTestServer(t *testing.T, withDB bool) (*Server, http.Handler) {
	t.Helper()
	f := config.Default()
	f.Settings.Seed = 9
	sess, err := engine.NewSession(f, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	sess.Regenerate()

	s := &Server{Sess: sess, AdminKey: "secret", RegenLimit: 2}
	if withDB {
		db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		s.DB = db
	}
	return s, s.Handler()
}

func do(h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusAndRooms(t *testing.T) {
	s, h := newTestServer(t, false)

	rec := do(h, http.MethodGet, "/api/v1/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var st engine.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Cells != s.Sess.Status().Cells || st.RunID == "" {
		t.Fatalf("status = %+v", st)
	}

	rec = do(h, http.MethodGet, "/api/v1/rooms", "", "")
	var rooms []engine.RoomView
	json.NewDecoder(rec.Body).Decode(&rooms)
	if len(rooms) != 1 || rooms[0].Name != "living" {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestCellsUnknownRoom(t *testing.T) {
	_, h := newTestServer(t, false)
	if rec := do(h, http.MethodGet, "/api/v1/cells?room=attic", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/cells?room=living", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
}

func TestFindValidatesPoint(t *testing.T) {
	s, h := newTestServer(t, false)
	if rec := do(h, http.MethodGet, "/api/v1/find?x=abc&y=1", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}

	c := s.Sess.Cells("")[0]
	rec := do(h, http.MethodGet, "/api/v1/find?x="+ftoa(c.X)+"&y="+ftoa(c.Y), "", "")
	var found []engine.RoomCells
	json.NewDecoder(rec.Body).Decode(&found)
	if len(found) != 1 || found[0].Cells[0].ID != c.ID {
		t.Fatalf("find = %+v", found)
	}
}

func TestAdminAuth(t *testing.T) {
	_, h := newTestServer(t, false)
	if rec := do(h, http.MethodPost, "/api/v1/recolor", `{"x":50,"y":50}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: code = %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/recolor", `{"x":50,"y":50}`, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: code = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/recolor", "", "secret"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: code = %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/recolor", `not json`, "secret"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body: code = %d", rec.Code)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s, _ := newTestServer(t, false)
	s.AdminKey = ""
	if rec := do(s.Handler(), http.MethodPost, "/api/v1/save", "", "anything"); rec.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", rec.Code)
	}
}

func TestRecolorPersistsRoom(t *testing.T) {
	s, h := newTestServer(t, true)
	if rec := do(h, http.MethodPost, "/api/v1/save", "", "secret"); rec.Code != http.StatusOK {
		t.Fatalf("save code = %d: %s", rec.Code, rec.Body)
	}

	c := s.Sess.Cells("living")[3]
	body := `{"x":` + ftoa(c.X) + `,"y":` + ftoa(c.Y) + `}`
	rec := do(h, http.MethodPost, "/api/v1/recolor", body, "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("recolor code = %d", rec.Code)
	}

	saved, err := s.DB.LoadTiles()
	if err != nil {
		t.Fatalf("LoadTiles: %v", err)
	}
	want := s.Sess.RoomRecords("living")
	if saved["living"][3] != want[3] {
		t.Fatalf("saved %+v, session %+v", saved["living"][3], want[3])
	}
}

func TestSaveWithoutDB(t *testing.T) {
	_, h := newTestServer(t, false)
	if rec := do(h, http.MethodPost, "/api/v1/save", "", "secret"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", rec.Code)
	}
}

func TestRegenerateIsRateLimited(t *testing.T) {
	s, h := newTestServer(t, false)
	before := s.Sess.RunID()
	for i := 0; i < 2; i++ {
		if rec := do(h, http.MethodPost, "/api/v1/regenerate", "", "secret"); rec.Code != http.StatusOK {
			t.Fatalf("regenerate %d: code = %d", i, rec.Code)
		}
	}
	if s.Sess.RunID() == before {
		t.Fatalf("run id unchanged after regenerate")
	}
	rec := do(h, http.MethodPost, "/api/v1/regenerate", "", "secret")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("third regenerate: code = %d, retry-after %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestMapPNG(t *testing.T) {
	_, h := newTestServer(t, false)
	rec := do(h, http.MethodGet, "/api/v1/map.png", "", "")
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The default room reaches (210, 210); the margin is 50.
	if b := img.Bounds(); b.Dx() != 260 || b.Dy() != 260 {
		t.Fatalf("bounds = %v", b)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || rl.Allow("a") {
		t.Fatalf("limit of one not enforced")
	}
	if !rl.Allow("b") {
		t.Fatalf("clients should not share a window")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Fatalf("RetryAfter = %d, want 61", got)
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("window did not reset")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	if got := clientIP(r); got != "10.0.0.7" {
		t.Fatalf("clientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := clientIP(r); got != "1.2.3.4" {
		t.Fatalf("clientIP with XFF = %q", got)
	}
}

func ftoa(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestMapWhileRecoloring(t *testing.T) {
	s, h := newTestServer(t, false)
	c := s.Sess.Cells("living")[0]
	body := `{"x":` + ftoa(c.X) + `,"y":` + ftoa(c.Y) + `}`

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if rec := do(h, http.MethodGet, "/api/v1/map.png", "", ""); rec.Code != http.StatusOK {
				t.Errorf("map code = %d", rec.Code)
			}
		}()
		go func() {
			defer wg.Done()
			if rec := do(h, http.MethodPost, "/api/v1/recolor", body, "secret"); rec.Code != http.StatusOK {
				t.Errorf("recolor code = %d", rec.Code)
			}
		}()
	}
	wg.Wait()

	// 20 steps around the palette of 3 from the starting colour.
	want := (c.Color + 20) % 3
	if got := s.Sess.Cells("living")[0].Color; got != want {
		t.Fatalf("colour after recolors = %d, want %d", got, want)
	}
}

func TestSaveWritesSettingsFile(t *testing.T) {
	s, _ := newTestServer(t, false)
	s.SavePath = filepath.Join(t.TempDir(), "settings.yml")
	h := s.Handler()

	if rec := do(h, http.MethodPost, "/api/v1/save", "", "secret"); rec.Code != http.StatusOK {
		t.Fatalf("save code = %d: %s", rec.Code, rec.Body)
	}
	f, err := config.Load(s.SavePath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := len(f.Generated["living"]), len(s.Sess.Cells("living")); got != want {
		t.Fatalf("generated living = %d records, want %d", got, want)
	}
}
