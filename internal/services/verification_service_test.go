package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studentai/internal/models"
)

func loadVerification(t *testing.T, svc *VerificationService, uid uuid.UUID) *models.EmailVerification {
	t.Helper()
	var ver models.EmailVerification
	require.NoError(t, svc.db.First(&ver, "user_id = ?", uid).Error)
	return &ver
}

func TestIssueCodeStoresAndSends(t *testing.T) {
	db := setupTestDB(t)
	mailer := &fakeMailer{}
	svc := NewVerificationService(db, mailer)

	uid := uuid.New()
	require.NoError(t, svc.IssueCode(context.Background(), uid, "student@example.com"))

	ver := loadVerification(t, svc, uid)
	assert.Len(t, ver.Code, 6)
	assert.GreaterOrEqual(t, ver.Code, "100000")
	assert.LessOrEqual(t, ver.Code, "999999")
	assert.Equal(t, 0, ver.Attempts)
	assert.Equal(t, "student@example.com", ver.Email)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "student@example.com", mailer.sent[0].to)
	assert.Equal(t, ver.Code, mailer.sent[0].code)
}

func TestIssueCodeSendFailureKeepsRecord(t *testing.T) {
	db := setupTestDB(t)
	svc := NewVerificationService(db, &fakeMailer{fail: true})

	uid := uuid.New()
	err := svc.IssueCode(context.Background(), uid, "student@example.com")
	require.Error(t, err)

	// The persisted code survives a failed send; the next resend overwrites it.
	loadVerification(t, svc, uid)
}

func TestReissueOverwritesAndResetsAttempts(t *testing.T) {
	db := setupTestDB(t)
	mailer := &fakeMailer{}
	svc := NewVerificationService(db, mailer)
	ctx := context.Background()

	uid := uuid.New()
	require.NoError(t, svc.IssueCode(ctx, uid, "student@example.com"))
	first := loadVerification(t, svc, uid)

	require.ErrorIs(t, svc.CheckCode(ctx, uid, "000000"), ErrCodeMismatch)
	assert.Equal(t, 1, loadVerification(t, svc, uid).Attempts)

	require.NoError(t, svc.IssueCode(ctx, uid, "student@example.com"))
	second := loadVerification(t, svc, uid)
	assert.Equal(t, 0, second.Attempts)

	// The old code is gone once a new one is issued.
	if first.Code != second.Code {
		require.ErrorIs(t, svc.CheckCode(ctx, uid, first.Code), ErrCodeMismatch)
	}
}

func TestCheckCodeVerifiesUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewVerificationService(db, &fakeMailer{})
	ctx := context.Background()

	email := "student@example.com"
	user := models.User{Email: &email}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, svc.IssueCode(ctx, user.ID, email))
	code := loadVerification(t, svc, user.ID).Code

	require.NoError(t, svc.CheckCode(ctx, user.ID, code))

	var updated models.User
	require.NoError(t, db.First(&updated, "id = ?", user.ID).Error)
	assert.True(t, updated.IsVerified)

	// Record is purged; replaying the same code finds nothing.
	require.ErrorIs(t, svc.CheckCode(ctx, user.ID, code), ErrVerificationNotFound)
}

func TestCheckCodeCreatesMissingUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewVerificationService(db, &fakeMailer{})
	ctx := context.Background()

	uid := uuid.New()
	require.NoError(t, svc.IssueCode(ctx, uid, "new@example.com"))
	code := loadVerification(t, svc, uid).Code

	require.NoError(t, svc.CheckCode(ctx, uid, code))

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", uid).Error)
	assert.True(t, user.IsVerified)
	require.NotNil(t, user.Email)
	assert.Equal(t, "new@example.com", *user.Email)
}

func TestCheckCodeExpired(t *testing.T) {
	db := setupTestDB(t)
	svc := NewVerificationService(db, &fakeMailer{})
	ctx := context.Background()

	uid := uuid.New()
	require.NoError(t, svc.IssueCode(ctx, uid, "student@example.com"))
	code := loadVerification(t, svc, uid).Code

	svc.now = func() time.Time { return time.Now().Add(codeTTL + time.Second) }

	require.ErrorIs(t, svc.CheckCode(ctx, uid, code), ErrCodeExpired)

	// Expiry purges the record, so even the correct code now finds nothing.
	require.ErrorIs(t, svc.CheckCode(ctx, uid, code), ErrVerificationNotFound)
}

func TestCheckCodeRateLimit(t *testing.T) {
	db := setupTestDB(t)
	svc := NewVerificationService(db, &fakeMailer{})
	ctx := context.Background()

	uid := uuid.New()
	require.NoError(t, svc.IssueCode(ctx, uid, "student@example.com"))
	code := loadVerification(t, svc, uid).Code

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < maxAttempts; i++ {
		require.ErrorIs(t, svc.CheckCode(ctx, uid, wrong), ErrCodeMismatch)
	}

	// Attempts have hit the cap: the next check is rejected and purges the
	// record, correct code or not.
	require.ErrorIs(t, svc.CheckCode(ctx, uid, code), ErrTooManyAttempts)
	require.ErrorIs(t, svc.CheckCode(ctx, uid, code), ErrVerificationNotFound)
}

func TestCheckCodeNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewVerificationService(db, &fakeMailer{})

	err := svc.CheckCode(context.Background(), uuid.New(), "123456")
	require.ErrorIs(t, err, ErrVerificationNotFound)
	assert.False(t, errors.Is(err, ErrCodeMismatch))
}

func TestGenerateVerificationCodeRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := generateVerificationCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.GreaterOrEqual(t, code, "100000")
		require.LessOrEqual(t, code, "999999")
	}
}
