package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/glotchimo/obras/internal/models"
	"github.com/graxinc/errutil"
)

var ErrNotFound = errors.New("guild not found")

// Backend persists guild configurations. Get returns ErrNotFound for unknown
// guilds and always hands back a copy the caller may mutate.
type Backend interface {
	Get(ctx context.Context, guildID string) (*models.Guild, error)
	Put(ctx context.Context, guild *models.Guild) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Store is the single writer in front of a Backend. Every read-modify-write
// runs under one lock so overlapping commands cannot lose each other's
// updates.
type Store struct {
	mu sync.Mutex
	b  Backend
	l  *slog.Logger
}

func NewStore(l *slog.Logger, b Backend) *Store {
	return &Store{b: b, l: l}
}

func (s *Store) Close() error {
	return s.b.Close()
}

// GetOrCreate returns the guild's configuration, inserting and persisting a
// default one the first time the guild is seen.
func (s *Store) GetOrCreate(ctx context.Context, guildID string) (*models.Guild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreate(ctx, guildID)
}

// Update applies fn to a copy of the guild's configuration and persists the
// result. When fn fails nothing is written and its error is returned as is.
func (s *Store) Update(ctx context.Context, guildID string, fn func(*models.Guild) error) (*models.Guild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getOrCreate(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if err := fn(g); err != nil {
		return nil, err
	}

	if err := s.b.Put(ctx, g); err != nil {
		return nil, errutil.With(err)
	}

	return g, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.b.Count(ctx)
	if err != nil {
		return 0, errutil.With(err)
	}
	return count, nil
}

func (s *Store) getOrCreate(ctx context.Context, guildID string) (*models.Guild, error) {
	g, err := s.b.Get(ctx, guildID)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errutil.With(err)
	}

	g = models.NewGuild(guildID)
	if err := s.b.Put(ctx, g); err != nil {
		return nil, errutil.With(err)
	}

	s.l.Info("created guild configuration", "guild", guildID)
	return g, nil
}
