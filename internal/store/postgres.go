package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
)

type draftRow struct {
	ID        string         `gorm:"primaryKey;size:16"`
	Version   int64          `gorm:"not null"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	ExpiresAt time.Time      `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (draftRow) TableName() string { return "drafts" }

// Postgres keeps drafts as jsonb documents. Expiry is enforced on read and
// cleaned up by Sweep.
type Postgres struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

// OpenPostgres connects through pgx, wraps the pool with gorm and migrates
// the drafts table.
func OpenPostgres(ctx context.Context, dsn string, verbose bool) (*Postgres, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	sqlDB := stdlib.OpenDB(*connConfig)

	gormConfig := &gorm.Config{Logger: gormlogger.Discard}
	if verbose {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(pgdriver.New(pgdriver.Config{Conn: sqlDB}), gormConfig)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.WithContext(ctx).AutoMigrate(&draftRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}
	return NewPostgres(db), nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) row(d engine.Draft, ttl time.Duration) (draftRow, error) {
	doc, err := json.Marshal(d)
	if err != nil {
		return draftRow{}, fmt.Errorf("encode draft %s: %w", d.ID, err)
	}
	now := p.now()
	return draftRow{
		ID:        engine.NormalizeID(d.ID),
		Version:   d.Version,
		Document:  datatypes.JSON(doc),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (engine.Draft, error) {
	var row draftRow
	err := p.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", engine.NormalizeID(id), p.now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.Draft{}, ErrNotFound
	}
	if err != nil {
		return engine.Draft{}, fmt.Errorf("load draft %s: %w", id, err)
	}
	return decodeDraft(id, row.Document)
}

func (p *Postgres) Create(ctx context.Context, d engine.Draft, ttl time.Duration) error {
	row, err := p.row(d, ttl)
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// An expired row does not reserve its id.
		if err := tx.Where("id = ? AND expires_at <= ?", row.ID, row.CreatedAt).Delete(&draftRow{}).Error; err != nil {
			return fmt.Errorf("clear expired draft %s: %w", row.ID, err)
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("create draft %s: %w", row.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrExists
		}
		return nil
	})
}

func (p *Postgres) Save(ctx context.Context, d engine.Draft, expected int64, ttl time.Duration) error {
	row, err := p.row(d, ttl)
	if err != nil {
		return err
	}

	res := p.db.WithContext(ctx).Model(&draftRow{}).
		Where("id = ? AND version = ? AND expires_at > ?", row.ID, expected, row.UpdatedAt).
		Updates(map[string]any{
			"version":    row.Version,
			"document":   row.Document,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("save draft %s: %w", row.ID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	if _, err := p.Get(ctx, row.ID); err != nil {
		return err
	}
	return ErrConflict
}

func (p *Postgres) Put(ctx context.Context, d engine.Draft, ttl time.Duration) error {
	row, err := p.row(d, ttl)
	if err != nil {
		return err
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "document", "expires_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("put draft %s: %w", row.ID, err)
	}
	return nil
}

func (p *Postgres) PutIfNewer(ctx context.Context, d engine.Draft, ttl time.Duration) (bool, error) {
	row, err := p.row(d, ttl)
	if err != nil {
		return false, err
	}
	res := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "document", "expires_at", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{clause.Expr{
			SQL:  "drafts.version < excluded.version OR drafts.expires_at <= ?",
			Vars: []any{row.UpdatedAt},
		}}},
	}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("backfill draft %s: %w", row.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	err := p.db.WithContext(ctx).Where("id = ?", engine.NormalizeID(id)).Delete(&draftRow{}).Error
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) Sweep(ctx context.Context) (int, error) {
	res := p.db.WithContext(ctx).Where("expires_at <= ?", p.now()).Delete(&draftRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep drafts: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
