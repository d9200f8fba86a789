package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/payout-api/internal/models"
)

func technicianRows(id, email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "code", "email", "password_hash", "full_name", "role", "active", "last_login", "created_at", "updated_at",
	}).AddRow(id, "T01", email, "$2a$10$hash", "Pat Doe", "TECHNICIAN", true, nil, now, now)
}

func TestTechnicianRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTechnicianRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, email")).
		WithArgs("pat@example.com").
		WillReturnRows(technicianRows("tech-1", "pat@example.com"))

	technician, err := repo.FindByEmail(context.Background(), "pat@example.com")
	require.NoError(t, err)
	require.Equal(t, "tech-1", technician.ID)
	require.Equal(t, models.RoleTechnician, technician.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTechnicianRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTechnicianRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO technicians")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	technician := &models.Technician{
		Code:         "T02",
		Email:        "new@example.com",
		PasswordHash: "hash",
		FullName:     "New Tech",
		Role:         models.RoleTechnician,
		Active:       true,
	}
	require.NoError(t, repo.Create(context.Background(), technician))
	require.NotEmpty(t, technician.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTechnicianRepositoryRefreshTokenLifecycle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTechnicianRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{
		TechnicianID: "tech-1",
		Token:        "opaque-token",
		ExpiresAt:    time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))

	rows := sqlmock.NewRows([]string{
		"id", "technician_id", "token", "expires_at", "created_at", "revoked", "revoked_at", "ip_address", "user_agent",
	}).AddRow(token.ID, "tech-1", "opaque-token", token.ExpiresAt, time.Now(), false, nil, "", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, technician_id, token")).
		WillReturnRows(rows)

	found, err := repo.FindRefreshToken(context.Background(), "opaque-token")
	require.NoError(t, err)
	require.Equal(t, "tech-1", found.TechnicianID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = true")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RevokeRefreshToken(context.Background(), "opaque-token"))

	// Revoking twice finds no live row.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = true")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.Error(t, repo.RevokeRefreshToken(context.Background(), "opaque-token"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTechnicianRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTechnicianRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "tech-1"
	entry := &models.AuditLog{
		UserID:   &userID,
		Action:   models.AuditActionLogin,
		Resource: "auth",
	}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
