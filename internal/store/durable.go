package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kadenwood/verifyd/internal/config"
	"github.com/kadenwood/verifyd/internal/verdict"
)

// verdictRow is the GORM model backing the durable verdict table, the
// schema narrowed to exactly the fields the persisted record needs.
type verdictRow struct {
	Normalized   string `gorm:"primaryKey"`
	Reachability string `gorm:"index"`
	Deliverable  *bool
	CatchAll     bool
	Disposable   bool
	Role         bool
	Free         bool
	MXHost       string
	SMTPCode     int
	SMTPMessage  string
	Provider     string
	Domain       string `gorm:"index"`
	VerifiedAt   time.Time
	Error        string
	Tier         string
	BounceSignal *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (verdictRow) TableName() string { return "verdicts" }

// DurableStore persists verdicts in Postgres via GORM, grounded on
// config/confiig.go's ConnectDB (connection pool tuning, Ping, AutoMigrate).
// It does not implement the ephemeral domain-facts half of Store —
// callers compose it with an EphemeralStore via Compose.
type DurableStore struct {
	db *gorm.DB
}

// NewDurable opens a Postgres connection with the usual pooling
// defaults and migrates the verdict table.
func NewDurable(cfg config.PostgresConfig) (*DurableStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	if err := db.AutoMigrate(&verdictRow{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &DurableStore{db: db}, nil
}

func (d *DurableStore) GetVerdict(ctx context.Context, normalized string) (*verdict.Verdict, bool, error) {
	var row verdictRow
	err := d.db.WithContext(ctx).Where("normalized = ?", normalized).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	v := rowToVerdict(row)
	return &v, true, nil
}

// PutVerdict upserts by normalized address, last-writer-wins by VerifiedAt
// — a stale write arriving after a fresher one is a no-op.
func (d *DurableStore) PutVerdict(ctx context.Context, v verdict.Verdict) error {
	row := verdictToRow(v)
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing verdictRow
		err := tx.Where("normalized = ?", row.Normalized).First(&existing).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			return tx.Create(&row).Error
		case err != nil:
			return err
		case row.VerifiedAt.Before(existing.VerifiedAt):
			return nil
		default:
			return tx.Model(&verdictRow{}).Where("normalized = ?", row.Normalized).Select("*").Omit("CreatedAt").Updates(&row).Error
		}
	})
}

func (d *DurableStore) ScanDueForRefresh(ctx context.Context, olderThan time.Time, limit int) ([]verdict.Verdict, error) {
	var rows []verdictRow
	err := d.db.WithContext(ctx).
		Where("verified_at < ?", olderThan).
		Order("verified_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]verdict.Verdict, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToVerdict(row))
	}
	return out, nil
}

func (d *DurableStore) Stats(ctx context.Context) (Stats, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&verdictRow{}).Count(&count).Error; err != nil {
		return Stats{}, err
	}
	return Stats{VerdictCount: count}, nil
}

func rowToVerdict(row verdictRow) verdict.Verdict {
	return verdict.Verdict{
		Normalized:   row.Normalized,
		Reachability: verdict.Reachability(row.Reachability),
		Deliverable:  row.Deliverable,
		CatchAll:     row.CatchAll,
		Disposable:   row.Disposable,
		Role:         row.Role,
		Free:         row.Free,
		MXHost:       row.MXHost,
		SMTPCode:     row.SMTPCode,
		SMTPMessage:  row.SMTPMessage,
		Provider:     verdict.Provider(row.Provider),
		Domain:       row.Domain,
		VerifiedAt:   row.VerifiedAt,
		Error:        row.Error,
		Tier:         row.Tier,
		BounceSignal: row.BounceSignal,
	}
}

func verdictToRow(v verdict.Verdict) verdictRow {
	return verdictRow{
		Normalized:   v.Normalized,
		Reachability: string(v.Reachability),
		Deliverable:  v.Deliverable,
		CatchAll:     v.CatchAll,
		Disposable:   v.Disposable,
		Role:         v.Role,
		Free:         v.Free,
		MXHost:       v.MXHost,
		SMTPCode:     v.SMTPCode,
		SMTPMessage:  v.SMTPMessage,
		Provider:     string(v.Provider),
		Domain:       v.Domain,
		VerifiedAt:   v.VerifiedAt,
		Error:        v.Error,
		Tier:         v.Tier,
		BounceSignal: v.BounceSignal,
	}
}
