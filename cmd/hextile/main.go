// Command hextile tiles the configured rooms with hexagons, stores the
// result in SQLite, renders it to PNG and optionally serves the HTTP API.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hextile/internal/api"
	"github.com/talgya/hextile/internal/config"
	"github.com/talgya/hextile/internal/engine"
	"github.com/talgya/hextile/internal/persistence"
	"github.com/talgya/hextile/internal/render"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := envOrDefault("HEXTILE_CONFIG", "settings.yml")
	dbPath := envOrDefault("HEXTILE_DB", "data/hextile.db")
	pngPath := envOrDefault("HEXTILE_PNG", "data/hextile.png")
	savePath := envOrDefault("HEXTILE_SAVE", configPath)
	apiPort := envIntOrDefault("HEXTILE_PORT", 0)

	// ── Settings ──────────────────────────────────────────────────────
	file, err := config.Load(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("settings file not found, using defaults", "path", configPath)
		file = config.Default()
	case err != nil:
		slog.Error("failed to load settings", "path", configPath, "error", err)
		os.Exit(1)
	}
	if seed := os.Getenv("HEXTILE_SEED"); seed != "" {
		n, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			slog.Error("invalid HEXTILE_SEED", "value", seed, "error", err)
			os.Exit(1)
		}
		file.Settings.Seed = n
	}

	canvas := render.NewCanvas(file.Sources(), 0, 0)
	sess, err := engine.NewSession(file, canvas)
	if err != nil {
		slog.Error("invalid settings", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(dbPath), 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Restore or Generate ───────────────────────────────────────────
	var st engine.Status
	if db.HasSave() {
		slog.Info("found saved tiles, loading...")
		st, err = db.RestoreSession(sess)
		if err != nil {
			slog.Error("failed to restore tiles", "error", err)
			os.Exit(1)
		}
	} else {
		var restored bool
		if st, restored = sess.RestoreGenerated(); restored {
			slog.Info("restored tiles from settings file", "path", configPath)
		} else {
			st = sess.Regenerate()
			if err := sess.SaveFile(savePath); err != nil {
				slog.Error("settings save failed", "path", savePath, "error", err)
			}
		}
		if err := db.SaveSession(sess); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	for _, cs := range sess.Stats() {
		slog.Info("colour", "index", cs.Index, "cells", humanize.Comma(int64(cs.Count)), "boxes", cs.Boxes)
	}

	// ── Render ────────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(pngPath), 0755)
	sess.Redraw()
	if err := canvas.SavePNG(pngPath); err != nil {
		slog.Error("failed to write png", "error", err)
	} else {
		slog.Info("png written", "path", pngPath, "frames", humanize.Comma(int64(canvas.Frames())))
	}

	fmt.Printf("\n%s cells across %d rooms (run %s).\n", st.CellsHuman, st.Rooms, st.RunID)
	if st.Capped {
		fmt.Printf("Cell cap of %s reached; some rooms are only partly tiled.\n", humanize.Comma(int64(st.MaxCells)))
	}

	if apiPort == 0 {
		return
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("HEXTILE_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("HEXTILE_ADMIN_KEY not set, admin POST endpoints disabled")
	}
	apiServer := &api.Server{
		Sess:     sess,
		DB:       db,
		SavePath: savePath,
		Port:     apiPort,
		AdminKey: adminKey,
	}
	apiServer.Start()
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	slog.Info("final save...")
	if err := db.SaveSession(sess); err != nil {
		slog.Error("final save failed", "error", err)
	}
	if err := sess.SaveFile(savePath); err != nil {
		slog.Error("final settings save failed", "path", savePath, "error", err)
	}
	final := render.NewCanvas(file.Sources(), 0, 0)
	sess.DrawTo(final)
	if err := final.SavePNG(pngPath); err != nil {
		slog.Error("final png failed", "error", err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
