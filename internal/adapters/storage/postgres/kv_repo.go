package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/quickcart/internal/domain"
)

// KVEntry is one durable visitor value.
type KVEntry struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte `gorm:"type:bytea;not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entries" }

type KVRepo struct{ db *gorm.DB }

func NewKVRepo(db *gorm.DB) *KVRepo { return &KVRepo{db: db} }

func (r *KVRepo) Migrate() error {
	if err := r.db.AutoMigrate(&KVEntry{}); err != nil {
		return err
	}
	_ = r.db.Exec("CREATE INDEX IF NOT EXISTS idx_kv_entries_updated_at ON kv_entries(updated_at)").Error
	return nil
}

func (r *KVRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var e KVEntry
	if err := r.db.WithContext(ctx).First(&e, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e.Value, nil
}

func (r *KVRepo) Set(ctx context.Context, key string, value []byte) error {
	e := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (r *KVRepo) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&KVEntry{}).Error
}

// PurgeOlderThan drops entries not written since cutoff.
func (r *KVRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&KVEntry{})
	return res.RowsAffected, res.Error
}
