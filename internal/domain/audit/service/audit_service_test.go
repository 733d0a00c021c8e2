package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"suzu_discount/internal/domain/audit/model"
)

// MockAuditRepository is a mock of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(entry *model.AuditEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockAuditRepository) Recent(limit int) ([]model.AuditEntry, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditEntry), args.Error(1)
}

func TestRecordWritesEntry(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.MatchedBy(func(e *model.AuditEntry) bool {
		return e.Action == model.ActionUserRegistered &&
			e.PhoneNumber != nil && *e.PhoneNumber == "01012345678"
	})).Return(nil)

	svc := NewAuditService(mockRepo, 8)
	svc.Record(model.ActionUserRegistered, "01012345678", "registered with 25% discount", "10.0.0.1", "test-agent")
	svc.Close()

	mockRepo.AssertExpectations(t)
}

func TestRecordEmptyFieldsBecomeNull(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.MatchedBy(func(e *model.AuditEntry) bool {
		return e.PhoneNumber == nil && e.SourceAddr == nil && e.UserAgent == nil
	})).Return(nil)

	svc := NewAuditService(mockRepo, 8)
	svc.Record(model.ActionAdminLoginFailed, "", "Invalid admin password attempt", "", "")
	svc.Close()

	mockRepo.AssertExpectations(t)
}

func TestWriteFailureDoesNotPanic(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything).Return(errors.New("db down"))

	svc := NewAuditService(mockRepo, 8)
	svc.Record(model.ActionCodeRedeemed, "01012345678", "redeemed", "", "")

	assert.NotPanics(t, func() { svc.Close() })
	mockRepo.AssertExpectations(t)
}

func TestRecent(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	entries := []model.AuditEntry{{Action: model.ActionAdminViewUsers}}
	mockRepo.On("Recent", 100).Return(entries, nil)

	svc := NewAuditService(mockRepo, 8)
	defer svc.Close()

	// 非法 limit 回退到默认值
	got, err := svc.Recent(0)

	assert.NoError(t, err)
	assert.Len(t, got, 1)
	mockRepo.AssertExpectations(t)
}
