// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"love-coach-go/internal/model"

	"gorm.io/gorm"
)

// TargetRepository 接口定义了 Target 的持久化操作。
type TargetRepository interface {
	Create(ctx context.Context, target *model.Target) error
	FindByID(ctx context.Context, id uint) (*model.Target, error)
	FindWithPagination(ctx context.Context, offset, limit int) ([]model.Target, int64, error)
}

// targetRepository 是 TargetRepository 接口的 GORM 实现。
type targetRepository struct {
	db *gorm.DB
}

// NewTargetRepository 创建一个新的 TargetRepository 实例。
func NewTargetRepository(db *gorm.DB) TargetRepository {
	return &targetRepository{db: db}
}

// Create 在数据库中创建一个新的 Target 记录。
func (r *targetRepository) Create(ctx context.Context, target *model.Target) error {
	return r.db.WithContext(ctx).Create(target).Error
}

// FindByID 根据 ID 查找 Target，不存在时返回 gorm.ErrRecordNotFound。
func (r *targetRepository) FindByID(ctx context.Context, id uint) (*model.Target, error) {
	var target model.Target
	if err := r.db.WithContext(ctx).First(&target, id).Error; err != nil {
		return nil, err
	}
	return &target, nil
}

// FindWithPagination 按创建顺序分页检索 Target，并返回总记录数。
func (r *targetRepository) FindWithPagination(ctx context.Context, offset, limit int) ([]model.Target, int64, error) {
	var targets []model.Target
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Target{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("id ASC").Offset(offset).Limit(limit).Find(&targets).Error
	if err != nil {
		return nil, 0, err
	}
	return targets, total, nil
}
