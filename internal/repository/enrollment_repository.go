package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/univreg/registrar-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students st ON st.id = e.student_id
LEFT JOIN sections s ON s.id = e.section_id
LEFT JOIN courses c ON c.id = s.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "st.full_name",
		"course_code":  "c.code",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
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

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.section_id, e.enrolled_at, e.dropped_at, e.status,
        st.full_name AS student_name, st.student_number, c.code AS course_code, c.name AS course_name,
        c.credit_hours, s.section_number %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, enrolled_at, dropped_at, status FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.enrolled_at, e.dropped_at, e.status,
        st.full_name AS student_name, st.student_number, c.code AS course_code, c.name AS course_name,
        c.credit_hours, s.section_number
        FROM enrollments e
        LEFT JOIN students st ON st.id = e.student_id
        LEFT JOIN sections s ON s.id = e.section_id
        LEFT JOIN courses c ON c.id = s.course_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActive checks whether an ENROLLED record exists for the
// (student, section) pair. Dropped and completed records never block.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// CreateTx persists a new enrollment record within the supplied
// transaction so it commits or rolls back together with the seat count.
func (r *EnrollmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	const query = `INSERT INTO enrollments (id, student_id, section_id, enrolled_at, dropped_at, status)
        VALUES (:id, :student_id, :section_id, :enrolled_at, :dropped_at, :status)`
	if _, err := tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatusTx updates status and dropped_at within the supplied transaction.
func (r *EnrollmentRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.EnrollmentStatus, droppedAt *time.Time) error {
	const query = `UPDATE enrollments SET status = $2, dropped_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, status, droppedAt); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// ListActiveSlotsByStudent returns one row per meeting slot across all
// sections the student is currently enrolled in, with course, section
// and classroom context eagerly joined.
func (r *EnrollmentRepository) ListActiveSlotsByStudent(ctx context.Context, studentID string) ([]models.StudentSlotRow, error) {
	const query = `SELECT e.id AS enrollment_id, s.id AS section_id, sl.id AS slot_id,
        c.code AS course_code, c.name AS course_name, c.credit_hours,
        s.section_number, s.instructor_name, r.building, r.room_number,
        sl.day_of_week, sl.start_time, sl.end_time
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN schedule_slots sl ON sl.section_id = s.id
        LEFT JOIN courses c ON c.id = s.course_id
        LEFT JOIN classrooms r ON r.id = s.classroom_id
        WHERE e.student_id = $1 AND e.status = $2
        ORDER BY e.enrolled_at, sl.start_time`
	var rows []models.StudentSlotRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}
	return rows, nil
}

// ListActiveDetailsByStudent returns one row per active enrollment with
// course context, used for credit totals in the timetable export.
func (r *EnrollmentRepository) ListActiveDetailsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.enrolled_at, e.dropped_at, e.status,
        st.full_name AS student_name, st.student_number, c.code AS course_code, c.name AS course_name,
        c.credit_hours, s.section_number
        FROM enrollments e
        LEFT JOIN students st ON st.id = e.student_id
        LEFT JOIN sections s ON s.id = e.section_id
        LEFT JOIN courses c ON c.id = s.course_id
        WHERE e.student_id = $1 AND e.status = $2`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return details, nil
}
