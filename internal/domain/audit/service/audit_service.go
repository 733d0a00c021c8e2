package service

import (
	"sync"

	"go.uber.org/zap"

	"suzu_discount/internal/domain/audit/model"
	"suzu_discount/internal/domain/audit/repository"
	"suzu_discount/pkg/logger"
)

// AuditService 异步审计写入器
// 记录调用只入队不落库，写入失败或队列满都不影响主流程
type AuditService struct {
	repo  repository.AuditRepository
	queue chan model.AuditEntry

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAuditService 创建审计服务并启动后台写入协程
func NewAuditService(repo repository.AuditRepository, bufferSize int) *AuditService {
	s := &AuditService{
		repo:  repo,
		queue: make(chan model.AuditEntry, bufferSize),
	}

	s.wg.Add(1)
	go s.writer()

	return s
}

func (s *AuditService) writer() {
	defer s.wg.Done()
	for entry := range s.queue {
		if err := s.repo.Insert(&entry); err != nil {
			if logger.Log != nil {
				logger.Log.Warn("Failed to write audit entry",
					zap.String("action", entry.Action),
					zap.Error(err),
				)
			}
		}
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Record 记录一条审计事件，从不阻塞，队列满时丢弃
func (s *AuditService) Record(action, phone, details, sourceAddr, userAgent string) {
	entry := model.AuditEntry{
		Action:      action,
		PhoneNumber: optional(phone),
		Details:     details,
		SourceAddr:  optional(sourceAddr),
		UserAgent:   optional(userAgent),
	}

	select {
	case s.queue <- entry:
	default:
		if logger.Log != nil {
			logger.Log.Warn("Audit queue full, dropping entry", zap.String("action", action))
		}
	}
}

// RecordFunc 不带请求上下文的记录钩子 (后台投递协程使用)
func (s *AuditService) RecordFunc() func(action, phone, details string) {
	return func(action, phone, details string) {
		s.Record(action, phone, details, "", "")
	}
}

// Recent 查询最近的审计记录
func (s *AuditService) Recent(limit int) ([]model.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.Recent(limit)
}

// Close 关闭队列并等待缓冲写完，进程退出前调用
func (s *AuditService) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}
