package database

import (
	"log"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// NewSQLXFromGorm 复用 GORM 底层连接池创建 sqlx 句柄
// 审计日志走原生 SQL 追加写入，不需要 ORM 映射
func NewSQLXFromGorm(db *gorm.DB) *sqlx.DB {
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying sql.DB: %v", err)
	}
	return sqlx.NewDb(sqlDB, "pgx")
}
