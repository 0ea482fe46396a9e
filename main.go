package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilenav/chunk"
	"github.com/milk9111/tilenav/config"
	"github.com/milk9111/tilenav/debugapi"
	"github.com/milk9111/tilenav/levels"
	"github.com/milk9111/tilenav/log"
)

func main() {
	debug := flag.Bool("debug", false, "draw collider outlines")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	configDir := flag.String("config", ".", "directory searched for tilenav.yaml")
	spawnFlag := flag.String("spawn", "", "agent spawn position as x,y (defaults to the agent prefab)")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := log.Init(log.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var spawn *cp.Vector
	if *spawnFlag != "" {
		v, err := parseVector(*spawnFlag)
		if err != nil {
			log.WithField("err", err).Fatal("bad -spawn")
		}
		spawn = &v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	source, cache, err := openSource(ctx, cfg)
	if err != nil {
		log.WithField("err", err).Fatal("open chunk source")
	}
	if cache != nil {
		defer cache.Close()
	}

	reloads := watchChunks(ctx, cfg, cache)

	game, err := NewGame(ctx, GameOptions{
		Config:  cfg,
		Source:  source,
		Spawn:   spawn,
		Reloads: reloads,
		Debug:   *debug,
	})
	if err != nil {
		log.WithField("err", err).Fatal("start viewer")
	}

	if cfg.Debug.HTTPAddr != "" {
		go debugapi.Serve(ctx, cfg.Debug.HTTPAddr, game.Navigator())
	}
	if cfg.Debug.StreamAddr != "" {
		go debugapi.ServeStream(ctx, cfg.Debug.StreamAddr, debugapi.NewStream(game.Navigator(), cfg.Debug.StreamInterval))
	}

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("tilenav")

	if err := ebiten.RunGame(game); err != nil {
		log.WithField("err", err).Fatal("viewer stopped")
	}
}

// openSource picks the chunk backend named by the config. Non-embedded
// backends are wrapped in a payload cache when one is configured.
func openSource(ctx context.Context, cfg *config.Config) (chunk.Source, *chunk.CachedSource, error) {
	var source chunk.Source
	switch cfg.Chunks.Source {
	case config.SourceEmbed:
		return levels.Source(), nil, nil
	case config.SourceDir:
		source = levels.DirSource(cfg.Chunks.Dir)
	case config.SourcePostgres:
		db, err := chunk.OpenPostgres(cfg.DB.DSN)
		if err != nil {
			return nil, nil, err
		}
		gs := chunk.NewGormSource(db, cfg.DB.MapID)
		if err := gs.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		source = gs
	default:
		return nil, nil, fmt.Errorf("unknown chunk source %q", cfg.Chunks.Source)
	}

	if cfg.Chunks.CacheMB <= 0 {
		return source, nil, nil
	}
	cache, err := chunk.NewCachedSource(source, cfg.Chunks.CacheMB<<20, cfg.Chunks.CacheTTL)
	if err != nil {
		return nil, nil, err
	}
	return cache, cache, nil
}

// watchChunks relays edited chunk files to the tick loop. It returns nil
// when watching is off, which PollReloads treats as "nothing to apply".
func watchChunks(ctx context.Context, cfg *config.Config, cache *chunk.CachedSource) <-chan chunk.Coord {
	if !cfg.Chunks.Watch || cfg.Chunks.Source != config.SourceDir {
		return nil
	}
	watcher, err := chunk.NewWatcher(cfg.Chunks.Dir)
	if err != nil {
		log.WithFields(log.Fields{"dir": cfg.Chunks.Dir, "err": err}).Warn("chunk hot reload disabled")
		return nil
	}

	reloads := make(chan chunk.Coord, 16)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-watcher.Errors:
				log.WithField("err", err).Warn("chunk watcher")
			case coord := <-watcher.Events:
				if cache != nil {
					cache.Invalidate(coord)
				}
				select {
				case reloads <- coord:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	log.WithField("dir", cfg.Chunks.Dir).Info("watching chunk files")
	return reloads
}

func parseVector(s string) (cp.Vector, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return cp.Vector{}, fmt.Errorf("%q: expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return cp.Vector{}, fmt.Errorf("%q: x: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return cp.Vector{}, fmt.Errorf("%q: y: %w", s, err)
	}
	return cp.Vector{X: x, Y: y}, nil
}
