package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/glotchimo/obras/internal/models"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/graxinc/errutil"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrations embed.FS

type dialect struct {
	name        string
	driver      string
	placeholder sq.PlaceholderFormat
}

var (
	dialectPostgres = dialect{name: "postgres", driver: "postgres", placeholder: sq.Dollar}
	dialectSQLite   = dialect{name: "sqlite3", driver: "sqlite3", placeholder: sq.Question}
)

// SQLBackend stores one row per guild holding the same JSON document the
// file backend writes.
type SQLBackend struct {
	l       *slog.Logger
	db      *sqlx.DB
	builder sq.StatementBuilderType
}

type guildRow struct {
	ID       string `db:"id"`
	Document []byte `db:"document"`
}

// NewSQLBackend accepts postgres:// and sqlite3:// URLs and migrates the
// schema before returning.
func NewSQLBackend(l *slog.Logger, databaseURL string) (*SQLBackend, error) {
	d, migrateURL, dsn, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, errutil.With(err)
	}

	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, errutil.With(err)
	}

	if d.name == dialectSQLite.name {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	backend := SQLBackend{l: l, db: db, builder: sq.StatementBuilder.PlaceholderFormat(d.placeholder)}

	if err := backend.Migrate(d, migrateURL); err != nil {
		db.Close()
		return nil, errutil.With(err)
	}

	return &backend, nil
}

func parseDatabaseURL(databaseURL string) (d dialect, migrateURL, dsn string, err error) {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return dialect{}, "", "", fmt.Errorf("database url %q has no scheme", databaseURL)
	}

	switch scheme {
	case "postgres", "postgresql":
		return dialectPostgres, databaseURL, databaseURL, nil
	case "sqlite", "sqlite3":
		return dialectSQLite, "sqlite3://" + rest, rest, nil
	}

	return dialect{}, "", "", fmt.Errorf("unsupported database scheme %q", scheme)
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

func (b *SQLBackend) Migrate(d dialect, databaseURL string) error {
	src, err := iofs.New(migrations, "migrations/"+d.name)
	if err != nil {
		return errutil.With(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return errutil.With(err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errutil.With(err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return errutil.With(err)
	}

	b.l.Info("migrations applied", "dialect", d.name, "version", version, "dirty", dirty)

	return nil
}

func (b *SQLBackend) Get(ctx context.Context, guildID string) (*models.Guild, error) {
	query, args, err := b.builder.
		Select("id", "document").
		From(string(models.TableGuilds)).
		Where(sq.Eq{"id": guildID}).
		ToSql()
	if err != nil {
		return nil, errutil.With(err)
	}

	var row guildRow
	if err := b.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errutil.Wrap(err)
	}

	g := models.NewGuild(row.ID)
	if err := json.Unmarshal(row.Document, g); err != nil {
		return nil, errutil.With(err)
	}

	return g, nil
}

func (b *SQLBackend) Put(ctx context.Context, guild *models.Guild) error {
	return b.upsert(ctx, guild)
}

func (b *SQLBackend) upsert(ctx context.Context, m models.Mappable) error {
	now := time.Now().UTC()

	data, err := m.Map()
	if err != nil {
		return errutil.With(err)
	}
	data["created"] = now
	data["updated"] = now

	query, args, err := b.builder.
		Insert(string(m.Table())).
		SetMap(data).
		Suffix(`ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated = EXCLUDED.updated`).
		ToSql()
	if err != nil {
		return errutil.With(err)
	}

	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return errutil.With(err)
	}

	return nil
}

func (b *SQLBackend) Count(ctx context.Context) (int, error) {
	var count int

	query, args, err := b.builder.
		Select("COUNT(*)").
		From(string(models.TableGuilds)).
		ToSql()
	if err != nil {
		return count, errutil.With(err)
	}

	if err := b.db.GetContext(ctx, &count, query, args...); err != nil {
		return count, errutil.With(err)
	}

	return count, nil
}
