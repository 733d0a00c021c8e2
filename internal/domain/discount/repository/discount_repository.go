package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"suzu_discount/internal/domain/discount/model"
)

// ErrDuplicate 手机号或核销码撞了唯一约束
var ErrDuplicate = errors.New("record already exists")

// DiscountRepository 接口定义
type DiscountRepository interface {
	Create(record *model.DiscountRecord) error
	GetByPhone(phone string) (*model.DiscountRecord, error)
	GetByCode(code string) (*model.DiscountRecord, error)
	MarkVerified(phone string) (bool, error)
	Redeem(code string) (bool, error)
	List() ([]model.DiscountRecord, error)
	Search(query string) ([]model.DiscountRecord, error)
	Stats() (*model.Stats, error)
}

// discountRepository 实现
type discountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository 创建新的仓库实例
func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

// Create 插入新折扣记录
// 手机号或核销码冲突返回 ErrDuplicate，调用方按"已注册"处理而非硬失败
func (r *discountRepository) Create(record *model.DiscountRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByPhone 按手机号查询，未找到返回 (nil, nil)
func (r *discountRepository) GetByPhone(phone string) (*model.DiscountRecord, error) {
	var record model.DiscountRecord
	err := r.db.Where("phone_number = ?", phone).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByCode 按核销码查询，未找到返回 (nil, nil)
func (r *discountRepository) GetByCode(code string) (*model.DiscountRecord, error) {
	var record model.DiscountRecord
	err := r.db.Where("unique_code = ?", code).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkVerified 幂等置位 is_verified，返回是否实际更新了行
func (r *discountRepository) MarkVerified(phone string) (bool, error) {
	result := r.db.Model(&model.DiscountRecord{}).
		Where("phone_number = ? AND is_verified = ?", phone, false).
		Update("is_verified", true)
	return result.RowsAffected > 0, result.Error
}

// Redeem 核销，关键状态跃迁
// 单条条件 UPDATE 实现 CAS: 只有已验证且未使用的记录才会被置为已使用，
// 并发核销同一个码时最多一个请求拿到 RowsAffected=1
func (r *discountRepository) Redeem(code string) (bool, error) {
	result := r.db.Model(&model.DiscountRecord{}).
		Where("unique_code = ? AND is_verified = ? AND is_used = ?", code, true, false).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

// List 返回所有记录，最新在前
func (r *discountRepository) List() ([]model.DiscountRecord, error) {
	var records []model.DiscountRecord
	err := r.db.Order("created_at DESC").Find(&records).Error
	return records, err
}

// Search 按手机号模糊查询
func (r *discountRepository) Search(query string) ([]model.DiscountRecord, error) {
	var records []model.DiscountRecord
	err := r.db.Where("phone_number LIKE ?", "%"+query+"%").
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// Stats 聚合统计: 总数 / 已验证 / 待核销 / 已核销
func (r *discountRepository) Stats() (*model.Stats, error) {
	var stats model.Stats
	m := r.db.Model(&model.DiscountRecord{})

	if err := m.Session(&gorm.Session{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := m.Session(&gorm.Session{}).Where("is_verified = ?", true).Count(&stats.VerifiedUsers).Error; err != nil {
		return nil, err
	}
	if err := m.Session(&gorm.Session{}).Where("is_verified = ? AND is_used = ?", true, false).Count(&stats.ActiveCodes).Error; err != nil {
		return nil, err
	}
	if err := m.Session(&gorm.Session{}).Where("is_used = ?", true).Count(&stats.RedeemedCodes).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}
