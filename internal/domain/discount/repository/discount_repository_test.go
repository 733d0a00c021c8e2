package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"suzu_discount/internal/domain/discount/model"
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

var recordColumns = []string{"id", "phone_number", "discount_percentage", "unique_code",
	"encoded_payload", "is_verified", "is_used", "created_at", "used_at"}

func sampleRow() *sqlmock.Rows {
	return sqlmock.NewRows(recordColumns).
		AddRow(1, "01012345678", 20, "SUZU-AABBCCDD-EEFF0011",
			"SUZU-AABBCCDD-EEFF0011|01012345678|20", true, false, time.Now(), nil)
}

func TestCreate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDiscountRepository(db)

		mock.ExpectQuery(`INSERT INTO "discount_records"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		err := repo.Create(&model.DiscountRecord{
			PhoneNumber:        "01012345678",
			DiscountPercentage: 20,
			UniqueCode:         "SUZU-AABBCCDD-EEFF0011",
			EncodedPayload:     "SUZU-AABBCCDD-EEFF0011|01012345678|20",
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate phone returns ErrDuplicate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDiscountRepository(db)

		// 23505 是 Postgres 的唯一约束冲突码
		mock.ExpectQuery(`INSERT INTO "discount_records"`).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(&model.DiscountRecord{PhoneNumber: "01012345678"})

		assert.ErrorIs(t, err, ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetByPhone(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDiscountRepository(db)

		mock.ExpectQuery(`SELECT (.+) FROM "discount_records" WHERE phone_number =`).
			WillReturnRows(sampleRow())

		record, err := repo.GetByPhone("01012345678")

		assert.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "SUZU-AABBCCDD-EEFF0011", record.UniqueCode)
	})

	t.Run("Absent returns nil without error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDiscountRepository(db)

		mock.ExpectQuery(`SELECT (.+) FROM "discount_records"`).
			WillReturnRows(sqlmock.NewRows(recordColumns))

		record, err := repo.GetByPhone("01099999999")

		assert.NoError(t, err)
		assert.Nil(t, record)
	})
}

func TestMarkVerified(t *testing.T) {
	t.Run("Flips unverified row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDiscountRepository(db)

		mock.ExpectExec(`UPDATE "discount_records" SET "is_verified"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		changed, err := repo.MarkVerified("01012345678")

		assert.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("Idempotent on already verified row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDiscountRepository(db)

		mock.ExpectExec(`UPDATE "discount_records" SET "is_verified"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		changed, err := repo.MarkVerified("01012345678")

		assert.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestRedeem(t *testing.T) {
	t.Run("Verified unused code redeems once", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDiscountRepository(db)

		// 条件更新必须同时带已验证与未使用谓词，这是 CAS 的全部语义
		mock.ExpectExec(`UPDATE "discount_records" SET (.+) WHERE unique_code = (.+) AND is_verified = (.+) AND is_used =`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.Redeem("SUZU-AABBCCDD-EEFF0011")

		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already used code affects no rows", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewDiscountRepository(db)

		mock.ExpectExec(`UPDATE "discount_records" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.Redeem("SUZU-AABBCCDD-EEFF0011")

		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDiscountRepository(db)

	countRows := func(n int64) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"count"}).AddRow(n)
	}

	mock.ExpectQuery(`SELECT count\(\*\) FROM "discount_records"`).WillReturnRows(countRows(10))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "discount_records" WHERE is_verified =`).WillReturnRows(countRows(7))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "discount_records" WHERE is_verified = (.+) AND is_used =`).WillReturnRows(countRows(4))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "discount_records" WHERE is_used =`).WillReturnRows(countRows(3))

	stats, err := repo.Stats()

	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, int64(10), stats.TotalUsers)
	assert.Equal(t, int64(7), stats.VerifiedUsers)
	assert.Equal(t, int64(4), stats.ActiveCodes)
	assert.Equal(t, int64(3), stats.RedeemedCodes)

	// 聚合之间的不变量: 已核销 + 待核销 ≤ 已验证 ≤ 总数
	assert.LessOrEqual(t, stats.RedeemedCodes+stats.ActiveCodes, stats.VerifiedUsers)
	assert.LessOrEqual(t, stats.VerifiedUsers, stats.TotalUsers)
	assert.NoError(t, mock.ExpectationsWereMet())
}
