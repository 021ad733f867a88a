package engine

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/talgya/hextile/internal/config"
	"github.com/talgya/hextile/internal/world"
)

func testFile() *config.File {
	f := config.Default()
	f.Settings.Seed = 11
	f.Rooms = config.Rooms{
		{Name: "a", Points: [][]float64{{0, 0}, {100, 0}, {100, 100}, {0, 100}}},
		{Name: "b", Points: [][]float64{{150, 0}, {250, 0}, {250, 100}, {150, 100}}},
	}
	return f
}

func TestRegenerateReplacesGrid(t *testing.T) {
	draws := 0
	sess, err := NewSession(testFile(), world.SinkFunc(func([]*world.Cell, []*world.Border) { draws++ }))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	first := sess.Regenerate()
	second := sess.Regenerate()

	if first.Cells == 0 || first.Cells != second.Cells {
		t.Fatalf("cells: first %d, second %d", first.Cells, second.Cells)
	}
	if first.RunID == "" || first.RunID == second.RunID {
		t.Fatalf("run ids not fresh: %q %q", first.RunID, second.RunID)
	}
	if draws != first.Cells+second.Cells {
		t.Fatalf("draws = %d, want %d", draws, first.Cells+second.Cells)
	}
	if rooms := sess.Rooms(); len(rooms) != 2 || rooms[0].Cells+rooms[1].Cells != second.Cells {
		t.Fatalf("rooms = %+v", rooms)
	}
}

func TestNewSessionRejectsBadSettings(t *testing.T) {
	f := testFile()
	f.Rooms = append(f.Rooms, config.Room{Name: "dot", Points: [][]float64{{1, 1}}})
	if _, err := NewSession(f, nil); err == nil {
		t.Fatalf("expected an error for a one-point room")
	}
}

func TestFindAndRecolor(t *testing.T) {
	sess, _ := NewSession(testFile(), nil)
	sess.Regenerate()

	cell := sess.Cells("b")[4]
	p := world.Point{X: cell.X, Y: cell.Y}
	found := sess.Find(p)
	if len(found) != 1 || found[0].Room != "b" || found[0].Cells[0].ID != cell.ID {
		t.Fatalf("Find = %+v", found)
	}

	changed := sess.Recolor(p)
	if len(changed) != 1 {
		t.Fatalf("Recolor = %+v", changed)
	}
	want := (cell.Color + 1) % sess.Status().Colors
	if changed[0].Cells[0].Color != want {
		t.Fatalf("color = %d, want %d", changed[0].Cells[0].Color, want)
	}
	if rec := sess.RoomRecords("b")[4]; rec.ColorIndex != want {
		t.Fatalf("record not synced: %+v", rec)
	}
}

func TestRestoreFromRecords(t *testing.T) {
	sess, _ := NewSession(testFile(), nil)
	st := sess.Regenerate()
	records := sess.Records()

	other, _ := NewSession(testFile(), nil)
	got := other.Restore(records, "saved-run")
	if got.Cells != st.Cells || got.RunID != "saved-run" {
		t.Fatalf("Restore status = %+v", got)
	}
	stats := other.Stats()
	total := 0
	for _, s := range stats {
		total += s.Count
	}
	if total != st.Cells {
		t.Fatalf("stats count %d, cells %d", total, st.Cells)
	}
}

func TestSaveFileWritesGenerated(t *testing.T) {
	sess, _ := NewSession(testFile(), nil)
	sess.Regenerate()

	path := filepath.Join(t.TempDir(), "out.yml")
	if err := sess.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	f, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Generated["a"]) != len(sess.Cells("a")) {
		t.Fatalf("generated a = %d, cells = %d", len(f.Generated["a"]), len(sess.Cells("a")))
	}
	if sess.Settings().Generated != nil {
		t.Fatalf("SaveFile mutated the session settings")
	}
}

func TestConcurrentReadersDuringRegenerate(t *testing.T) {
	sess, _ := NewSession(testFile(), nil)
	sess.Regenerate()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sess.Regenerate()
		}()
		go func() {
			defer wg.Done()
			for _, c := range sess.Cells("") {
				if c.ID < 0 {
					t.Errorf("bad cell id %d", c.ID)
				}
			}
			sess.Stats()
		}()
	}
	wg.Wait()
}

func recordCounts(records map[string][]world.Record) map[string]map[world.Record]int {
	out := make(map[string]map[world.Record]int)
	for room, recs := range records {
		out[room] = make(map[world.Record]int)
		for _, r := range recs {
			out[room][r]++
		}
	}
	return out
}

func TestRestoreGeneratedFromSettingsFile(t *testing.T) {
	sess, _ := NewSession(testFile(), nil)
	sess.Regenerate()
	want := recordCounts(sess.Records())

	path := filepath.Join(t.TempDir(), "settings.yml")
	if err := sess.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	f, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	draws := 0
	other, err := NewSession(f, world.SinkFunc(func([]*world.Cell, []*world.Border) { draws++ }))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	st, ok := other.RestoreGenerated()
	if !ok {
		t.Fatalf("RestoreGenerated reported nothing to restore")
	}
	if st.Cells != sess.Status().Cells || st.RunID == "" {
		t.Fatalf("status = %+v", st)
	}
	if draws != 1 {
		t.Fatalf("draws after restore = %d, want 1", draws)
	}

	got := recordCounts(other.Records())
	if len(got) != len(want) {
		t.Fatalf("rooms = %d, want %d", len(got), len(want))
	}
	for room, counts := range want {
		for rec, n := range counts {
			if got[room][rec] != n {
				t.Fatalf("%s: record %+v seen %d times, want %d", room, rec, got[room][rec], n)
			}
		}
	}
}

func TestRestoreGeneratedWithoutRecords(t *testing.T) {
	sess, _ := NewSession(testFile(), nil)
	if st, ok := sess.RestoreGenerated(); ok || st.Cells != 0 {
		t.Fatalf("RestoreGenerated = %+v, %v", st, ok)
	}
}

func TestRedrawAndRecolorUseSink(t *testing.T) {
	draws := 0
	sess, _ := NewSession(testFile(), world.SinkFunc(func(cells []*world.Cell, _ []*world.Border) {
		draws++
	}))
	st := sess.Regenerate()
	draws = 0

	sess.Redraw()
	if draws != 1 {
		t.Fatalf("draws after Redraw = %d, want 1", draws)
	}
	c := sess.Cells("a")[0]
	sess.Recolor(world.Point{X: c.X, Y: c.Y})
	if draws != 2 {
		t.Fatalf("draws after Recolor = %d, want 2", draws)
	}
	sess.Recolor(world.Point{X: -500, Y: -500})
	if draws != 2 {
		t.Fatalf("a miss should not redraw, draws = %d", draws)
	}
	if st.Cells == 0 {
		t.Fatalf("no cells generated")
	}
}
