package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/glotchimo/obras/internal/models"
	"github.com/graxinc/errutil"
)

type document struct {
	Servers map[string]*models.Guild `json:"servers"`
}

// FileBackend keeps the whole document in memory and rewrites the file on
// every Put through a temp file and rename.
type FileBackend struct {
	mu     sync.RWMutex
	l      *slog.Logger
	path   string
	guilds map[string]*models.Guild
}

func NewFileBackend(l *slog.Logger, path string) (*FileBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errutil.With(err)
		}
	}

	f := FileBackend{l: l, path: path}
	f.guilds = f.load()

	l.Info("data file loaded", "path", path, "guilds", len(f.guilds))

	return &f, nil
}

// load never fails: a missing or unreadable document is treated as empty.
func (f *FileBackend) load() map[string]*models.Guild {
	empty := make(map[string]*models.Guild)

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.l.Warn("error reading data file, starting empty", "path", f.path, "error", err)
		}
		return empty
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		f.l.Warn("malformed data file, starting empty", "path", f.path, "error", err)
		return empty
	}

	if doc.Servers == nil {
		return empty
	}

	for id, g := range doc.Servers {
		if g == nil {
			g = models.NewGuild(id)
			doc.Servers[id] = g
		}
		g.ID = id
	}

	return doc.Servers
}

func (f *FileBackend) Get(ctx context.Context, guildID string) (*models.Guild, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	g, ok := f.guilds[guildID]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

func (f *FileBackend) Put(ctx context.Context, guild *models.Guild) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.guilds[guild.ID]
	f.guilds[guild.ID] = guild.Clone()

	if err := f.flush(); err != nil {
		if had {
			f.guilds[guild.ID] = prev
		} else {
			delete(f.guilds, guild.ID)
		}
		return errutil.With(err)
	}

	return nil
}

func (f *FileBackend) Count(ctx context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.guilds), nil
}

func (f *FileBackend) Close() error {
	return nil
}

func (f *FileBackend) flush() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Servers: f.guilds}); err != nil {
		return errutil.With(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errutil.With(err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errutil.With(err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errutil.With(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errutil.With(err)
	}
	if err := tmp.Close(); err != nil {
		return errutil.With(err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errutil.With(err)
	}

	return nil
}
