package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/biograph/insights/internal/app/models"
	"github.com/biograph/insights/internal/pkg/apperrors"
	"github.com/biograph/insights/internal/pkg/dberrors"
)

const auditPrimaryKey = "discipline_status_audit_pkey"

// classifyError maps PostgreSQL failures the services can act on
func classifyError(err error, action string) error {
	if dberrors.IsUndefinedTable(err) {
		return apperrors.NewCustomError(apperrors.ErrFeatureDisabled, "status audit table is missing, run the migrations")
	}
	return fmt.Errorf("error %s status audit: %w", action, err)
}

// StatusAuditRepository handles database operations for status audit rows
type StatusAuditRepository struct {
	db *pgxpool.Pool
}

// NewStatusAuditRepository creates a new status audit repository
func NewStatusAuditRepository(db *pgxpool.Pool) *StatusAuditRepository {
	return &StatusAuditRepository{
		db: db,
	}
}

// Create stores an audit row, assigning its id and timestamp when unset
func (r *StatusAuditRepository) Create(ctx context.Context, audit *models.StatusAudit) error {
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO discipline_status_audit
			(id, student_id, discipline_id, previous_status, new_status, override, actor_id, actor_role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		audit.ID,
		audit.StudentID,
		audit.DisciplineID,
		audit.PreviousStatus,
		audit.NewStatus,
		audit.Override,
		audit.ActorID,
		string(audit.ActorRole),
		audit.CreatedAt,
	)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, auditPrimaryKey) {
			return apperrors.NewCustomError(apperrors.ErrConflict, "status audit "+audit.ID.String()+" already recorded")
		}
		return classifyError(err, "inserting")
	}

	return nil
}

// ListByStudent returns the newest audit rows of a student first
func (r *StatusAuditRepository) ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]*models.StatusAudit, error) {
	query := `
		SELECT id, student_id, discipline_id, previous_status, new_status, override, actor_id, actor_role, created_at
		FROM discipline_status_audit
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, studentID, limit, offset)
	if err != nil {
		return nil, classifyError(err, "listing")
	}
	defer rows.Close()

	audits := []*models.StatusAudit{}
	for rows.Next() {
		var a models.StatusAudit
		var role string
		if err := rows.Scan(
			&a.ID,
			&a.StudentID,
			&a.DisciplineID,
			&a.PreviousStatus,
			&a.NewStatus,
			&a.Override,
			&a.ActorID,
			&role,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.ActorRole = models.RoleType(role)
		audits = append(audits, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return audits, nil
}

// CountByStudent returns the number of audit rows of a student
func (r *StatusAuditRepository) CountByStudent(ctx context.Context, studentID int64) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM discipline_status_audit WHERE student_id = $1`, studentID).Scan(&total)
	if err != nil {
		return 0, classifyError(err, "counting")
	}
	return total, nil
}
