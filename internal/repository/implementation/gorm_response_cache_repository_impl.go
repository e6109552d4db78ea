// FILE: internal/repository/implementation/gorm_response_cache_repository_impl.go
// Postgres-backed tier of the OpenDota response cache
package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dota-report-be/internal/model"
	"dota-report-be/internal/repository/contract"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormResponseCacheRepositoryImpl struct {
	db *gorm.DB
}

// NewGormResponseCacheRepository migrates the cache table and returns a
// write-through repository.
func NewGormResponseCacheRepository(db *gorm.DB) (contract.ResponseCacheRepository, error) {
	if err := db.AutoMigrate(&model.OpenDotaResponse{}); err != nil {
		return nil, fmt.Errorf("failed to migrate response cache: %w", err)
	}
	return &GormResponseCacheRepositoryImpl{db: db}, nil
}

func (r *GormResponseCacheRepositoryImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row model.OpenDotaResponse
	err := r.db.WithContext(ctx).Where("path = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(row.Body), true, nil
}

func (r *GormResponseCacheRepositoryImpl) Put(ctx context.Context, key string, body []byte) error {
	row := model.OpenDotaResponse{
		Path:      key,
		Body:      datatypes.JSON(body),
		FetchedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "fetched_at"}),
		}).
		Create(&row).Error
}

func (r *GormResponseCacheRepositoryImpl) Flush(context.Context) error {
	return nil
}
