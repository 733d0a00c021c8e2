package repository

import (
	"github.com/jmoiron/sqlx"

	"suzu_discount/internal/domain/audit/model"
)

// AuditRepository 接口定义
type AuditRepository interface {
	Insert(entry *model.AuditEntry) error
	Recent(limit int) ([]model.AuditEntry, error)
}

// auditRepository 实现
type auditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository 创建新的仓库实例
func NewAuditRepository(db *sqlx.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Insert 追加一条审计记录
func (r *auditRepository) Insert(entry *model.AuditEntry) error {
	_, err := r.db.NamedExec(`
		INSERT INTO audit_log (action, phone_number, details, ip_address, user_agent)
		VALUES (:action, :phone_number, :details, :ip_address, :user_agent)`,
		entry)
	return err
}

// Recent 按时间倒序取最近的审计记录
func (r *auditRepository) Recent(limit int) ([]model.AuditEntry, error) {
	entries := []model.AuditEntry{}
	err := r.db.Select(&entries, `
		SELECT id, action, phone_number, details, ip_address, user_agent, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1`,
		limit)
	return entries, err
}
