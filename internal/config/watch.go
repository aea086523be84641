package config

import (
	"context"
	"crypto/sha256"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Watcher polls a config file and calls OnChange when its content changes.
// A file that fails to parse or validate is logged and the last good config
// stays in effect.
type Watcher struct {
	Path     string
	Interval time.Duration
	OnChange func(*Config)
	Logger   *zerolog.Logger

	digest [sha256.Size]byte
}

// Start loads the file once, reports it to OnChange and keeps polling in the
// background until ctx is done. Only the first load can fail.
func (w *Watcher) Start(ctx context.Context) error {
	if w.Path == "" {
		w.Path = "configs/config.yaml"
	}
	if w.Interval <= 0 {
		w.Interval = 30 * time.Second
	}
	if w.Logger == nil {
		nop := zerolog.Nop()
		w.Logger = &nop
	}

	data, err := os.ReadFile(w.Path)
	if err != nil {
		return err
	}
	cfg, err := Parse(data)
	if err != nil {
		return err
	}
	w.digest = sha256.Sum256(data)
	w.notify(cfg)

	go w.poll(ctx)
	return nil
}

func (w *Watcher) poll(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.Path)
	if err != nil {
		w.Logger.Debug().Err(err).Str("path", w.Path).Msg("config not readable, keeping current")
		return
	}
	digest := sha256.Sum256(data)
	if digest == w.digest {
		return
	}
	// Remember the broken content too so it is reported once, not every tick.
	w.digest = digest

	cfg, err := Parse(data)
	if err != nil {
		w.Logger.Warn().Err(err).Str("path", w.Path).Msg("config change rejected, keeping current")
		return
	}
	w.Logger.Info().Str("path", w.Path).Msg("config reloaded")
	w.notify(cfg)
}

func (w *Watcher) notify(cfg *Config) {
	if w.OnChange != nil {
		w.OnChange(cfg)
	}
}
