package chatstorage

import (
	"context"
	"errors"
	"fmt"

	domainInstance "github.com/wppweb/gateway/domains/instance"
	pkgError "github.com/wppweb/gateway/pkg/error"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type instanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) domainInstance.IInstanceRepository {
	return &instanceRepository{db: db}
}

func (r *instanceRepository) FindInstance(ctx context.Context, id string) (*domainInstance.Instance, error) {
	var inst domainInstance.Instance
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgError.NotFoundError(fmt.Sprintf("instance %s not found", id))
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *instanceRepository) UpsertInstance(ctx context.Context, inst *domainInstance.Instance) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "status", "updated_at"}),
		}).
		Create(inst).Error
}

func (r *instanceRepository) UpdateInstance(ctx context.Context, id string, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domainInstance.Instance{}).
		Where("id = ?", id).
		Updates(patch).Error
}

func (r *instanceRepository) ListInstances(ctx context.Context) ([]*domainInstance.Instance, error) {
	var instances []*domainInstance.Instance
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&instances).Error
	return instances, err
}
