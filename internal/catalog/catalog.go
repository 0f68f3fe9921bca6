// Package catalog keeps an index of saved path files in a SQL database.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/internal/geo"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

// ErrUnsupportedType is returned by Open for an unknown catalog.type.
var ErrUnsupportedType = errors.New("unsupported catalog type")

// Bounds is the planar bounding box stored with each recording.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Recording is one saved path file.
type Recording struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FilePath  string         `gorm:"index" json:"filePath"`
	FrameID   string         `json:"frameId"`
	PoseCount int            `json:"poseCount"`
	Length    float64        `json:"length"`
	Bounds    datatypes.JSON `json:"bounds"`
	SavedAt   time.Time      `gorm:"index" json:"savedAt"`
}

// TableName pins the table name.
func (Recording) TableName() string { return "recordings" }

// Catalog wraps the gorm connection.
type Catalog struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open connects to the configured database and migrates the schema.
func Open(cfg config.CatalogConfig, log zerolog.Logger) (*Catalog, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Type {
	case "sqlite", "":
		db, err = openSQLite(cfg.SQLitePath)
		if err == nil {
			log.Info().Str("path", cfg.SQLitePath).Msg("Using SQLite catalog")
		}
	case "postgres":
		db, err = openPostgres(cfg.Postgres)
		if err == nil {
			log.Info().Str("host", cfg.Postgres.Host).Msg("Using Postgres catalog")
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	if db.Dialector.Name() == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}

	log.Debug().Msg("Migrating schema")
	if err := db.AutoMigrate(&Recording{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	return &Catalog{db: db, sqlDB: sqlDB, logger: log, now: time.Now}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

func openSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	return gorm.Open(sqlite.Open(path), gormConfig())
}

func openPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslmode)

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), gormConfig())
}

// Add records that p was saved to dest.
func (c *Catalog) Add(ctx context.Context, dest string, p core.Path) (Recording, error) {
	s, err := geo.Summarize(p)
	if err != nil {
		return Recording{}, err
	}
	bounds, err := json.Marshal(Bounds{MinX: s.MinX, MinY: s.MinY, MaxX: s.MaxX, MaxY: s.MaxY})
	if err != nil {
		return Recording{}, fmt.Errorf("%w: %w", core.ErrEncode, err)
	}

	rec := Recording{
		ID:        uuid.New(),
		FilePath:  dest,
		FrameID:   s.FrameID,
		PoseCount: s.Poses,
		Length:    s.Length,
		Bounds:    datatypes.JSON(bounds),
		SavedAt:   c.now().UTC(),
	}
	if err := c.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return Recording{}, fmt.Errorf("failed to add recording: %w", err)
	}
	c.logger.Debug().Str("file", dest).Int("poses", rec.PoseCount).Msg("Recording cataloged")
	return rec, nil
}

// List returns every recording, newest first.
func (c *Catalog) List(ctx context.Context) ([]Recording, error) {
	var out []Recording
	err := c.db.WithContext(ctx).Order("saved_at desc").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	return out, nil
}

// SaveHook adapts Add to the recorder's save hook. Failures are logged.
func (c *Catalog) SaveHook(ctx context.Context) func(dest string, p core.Path) {
	return func(dest string, p core.Path) {
		if _, err := c.Add(ctx, dest, p); err != nil {
			c.logger.Error().Err(err).Str("file", dest).Msg("Failed to catalog recording")
		}
	}
}

// Close closes the underlying connection.
func (c *Catalog) Close() error {
	return c.sqlDB.Close()
}
