package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldserve/payout-api/internal/models"
)

const technicianColumns = `id, code, email, password_hash, full_name, role, active, last_login, created_at, updated_at`

// TechnicianRepository manages technician accounts, refresh tokens and the
// audit trail.
type TechnicianRepository struct {
	db *sqlx.DB
}

// NewTechnicianRepository constructs a TechnicianRepository.
func NewTechnicianRepository(db *sqlx.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

// List returns technicians matching the filter plus the total count.
func (r *TechnicianRepository) List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args), len(args)))
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":  "full_name",
		"code":       "code",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM technicians%s ORDER BY %s %s LIMIT %d OFFSET %d",
		technicianColumns, where, column, order, size, offset)

	var technicians []models.Technician
	if err := r.db.SelectContext(ctx, &technicians, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list technicians: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM technicians"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count technicians: %w", err)
	}
	return technicians, total, nil
}

// Count returns the total number of technician records, unfiltered.
func (r *TechnicianRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM technicians"); err != nil {
		return 0, fmt.Errorf("count technicians: %w", err)
	}
	return total, nil
}

// FindByID fetches a technician by identifier.
func (r *TechnicianRepository) FindByID(ctx context.Context, id string) (*models.Technician, error) {
	query := fmt.Sprintf("SELECT %s FROM technicians WHERE id = $1", technicianColumns)
	var technician models.Technician
	if err := r.db.GetContext(ctx, &technician, query, id); err != nil {
		return nil, err
	}
	return &technician, nil
}

// FindByEmail fetches a technician by email for login.
func (r *TechnicianRepository) FindByEmail(ctx context.Context, email string) (*models.Technician, error) {
	query := fmt.Sprintf("SELECT %s FROM technicians WHERE LOWER(email) = LOWER($1)", technicianColumns)
	var technician models.Technician
	if err := r.db.GetContext(ctx, &technician, query, email); err != nil {
		return nil, err
	}
	return &technician, nil
}

// FindByCode fetches a technician by payroll code.
func (r *TechnicianRepository) FindByCode(ctx context.Context, code string) (*models.Technician, error) {
	query := fmt.Sprintf("SELECT %s FROM technicians WHERE code = $1", technicianColumns)
	var technician models.Technician
	if err := r.db.GetContext(ctx, &technician, query, code); err != nil {
		return nil, err
	}
	return &technician, nil
}

// Create inserts a technician account.
func (r *TechnicianRepository) Create(ctx context.Context, technician *models.Technician) error {
	if technician.ID == "" {
		technician.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if technician.CreatedAt.IsZero() {
		technician.CreatedAt = now
	}
	technician.UpdatedAt = now
	const query = `INSERT INTO technicians (id, code, email, password_hash, full_name, role, active, last_login, created_at, updated_at)
		VALUES (:id, :code, :email, :password_hash, :full_name, :role, :active, :last_login, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, technician); err != nil {
		return fmt.Errorf("create technician: %w", err)
	}
	return nil
}

// Update modifies profile fields of an existing technician.
func (r *TechnicianRepository) Update(ctx context.Context, technician *models.Technician) error {
	technician.UpdatedAt = time.Now().UTC()
	const query = `UPDATE technicians SET code = :code, email = :email, full_name = :full_name,
		role = :role, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, technician); err != nil {
		return fmt.Errorf("update technician: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps a successful login.
func (r *TechnicianRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE technicians SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at.UTC()); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *TechnicianRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE technicians SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Deactivate marks a technician inactive without deleting history.
func (r *TechnicianRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE technicians SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate technician: %w", err)
	}
	return nil
}

// CreateRefreshToken stores a new refresh token.
func (r *TechnicianRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, technician_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent)
		VALUES (:id, :technician_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken looks up an unrevoked, unexpired refresh token.
func (r *TechnicianRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, technician_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
		FROM refresh_tokens WHERE token = $1 AND revoked = false AND expires_at > $2`
	var stored models.RefreshToken
	if err := r.db.GetContext(ctx, &stored, query, token, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &stored, nil
}

// RevokeRefreshToken marks one token revoked. Rotation revokes the old token
// before issuing its replacement.
func (r *TechnicianRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	const query = `UPDATE refresh_tokens SET revoked = true, revoked_at = $2 WHERE token = $1 AND revoked = false`
	result, err := r.db.ExecContext(ctx, query, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check revoke rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RevokeAllForTechnician revokes every live token for one account, used on
// logout and password change.
func (r *TechnicianRepository) RevokeAllForTechnician(ctx context.Context, technicianID string) error {
	const query = `UPDATE refresh_tokens SET revoked = true, revoked_at = $2 WHERE technician_id = $1 AND revoked = false`
	if _, err := r.db.ExecContext(ctx, query, technicianID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// CreateAuditLog appends one audit entry.
func (r *TechnicianRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, old_values, ip_address, user_agent, created_at)
		VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :old_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
