package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return db, mock
}

var challengeColumns = []string{"id", "phone_number", "code", "expires_at", "is_verified", "attempt_count", "created_at"}

func TestIssue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectQuery(`INSERT INTO "otp_challenges"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := repo.Issue("01012345678", "123456", 5*time.Minute)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifySuccess(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	// 查询必须带过期时间与未验证谓词，只取最新一条
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "otp_challenges" WHERE phone_number = (.+) AND code = (.+) AND is_verified = (.+) AND expires_at > (.+)ORDER BY created_at DESC(.+)FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(challengeColumns).
			AddRow(7, "01012345678", "123456", time.Now().Add(4*time.Minute), false, 0, time.Now()))
	mock.ExpectExec(`UPDATE "otp_challenges" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.Verify("01012345678", "123456")

	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyNoMatchingChallenge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	// 过期、码值不符、无待验证挑战都会落在这个空结果分支
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "otp_challenges"`).
		WillReturnRows(sqlmock.NewRows(challengeColumns))
	mock.ExpectRollback()

	ok, err := repo.Verify("01012345678", "999999")

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec(`DELETE FROM "otp_challenges" WHERE expires_at <`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.SweepExpired()

	assert.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
