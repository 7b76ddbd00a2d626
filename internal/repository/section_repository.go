package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/univreg/registrar-api/internal/models"
)

// SectionRepository handles persistence of sections and owns the
// capacity ledger: the conditional increment/decrement statements below
// are the only writers of current_enrollment.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionDetailColumns = `s.id, s.course_id, s.classroom_id, s.section_number, s.instructor_name,
        s.max_capacity, s.current_enrollment, s.semester, s.academic_year, s.created_at, s.updated_at,
        c.code AS course_code, c.name AS course_name, c.credit_hours AS course_credit_hours,
        r.building, r.room_number`

// List returns sections filtered by the provided criteria.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	base := `FROM sections s
LEFT JOIN courses c ON c.id = s.course_id
LEFT JOIN classrooms r ON r.id = s.classroom_id`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("s.classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != 0 {
		conditions = append(conditions, fmt.Sprintf("s.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.InstructorName != "" {
		conditions = append(conditions, fmt.Sprintf("s.instructor_name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.InstructorName+"%")
	}
	if filter.HasAvailability {
		conditions = append(conditions, "s.current_enrollment < s.max_capacity")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"section_number": "s.section_number",
		"course_code":    "c.code",
		"created_at":     "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.section_number"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		sectionDetailColumns, base+clause, orderBy, order, size, offset)

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID returns a section by its ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, classroom_id, section_number, instructor_name,
        max_capacity, current_enrollment, semester, academic_year, created_at, updated_at
        FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID returns a section with course and classroom context.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections s
        LEFT JOIN courses c ON c.id = s.course_id
        LEFT JOIN classrooms r ON r.id = s.classroom_id
        WHERE s.id = $1`, sectionDetailColumns)
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new section record.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO sections (id, course_id, classroom_id, section_number, instructor_name,
        max_capacity, current_enrollment, semester, academic_year, created_at, updated_at)
        VALUES (:id, :course_id, :classroom_id, :section_number, :instructor_name,
        :max_capacity, :current_enrollment, :semester, :academic_year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update persists mutable section fields. current_enrollment is
// deliberately absent from the SET list.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET course_id = :course_id, classroom_id = :classroom_id,
        section_number = :section_number, instructor_name = :instructor_name,
        max_capacity = :max_capacity, semester = :semester, academic_year = :academic_year,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes a section; schedule slots cascade at the database level.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// CountByCourse returns how many sections reference the course.
func (r *SectionRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM sections WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count sections by course: %w", err)
	}
	return count, nil
}

// CountByClassroom returns how many sections reference the classroom.
func (r *SectionRepository) CountByClassroom(ctx context.Context, classroomID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM sections WHERE classroom_id = $1`, classroomID); err != nil {
		return 0, fmt.Errorf("count sections by classroom: %w", err)
	}
	return count, nil
}

const incrementEnrollmentQuery = `UPDATE sections
        SET current_enrollment = current_enrollment + 1, updated_at = $2
        WHERE id = $1 AND current_enrollment < max_capacity
        RETURNING id, course_id, classroom_id, section_number, instructor_name,
        max_capacity, current_enrollment, semester, academic_year, created_at, updated_at`

const decrementEnrollmentQuery = `UPDATE sections
        SET current_enrollment = current_enrollment - 1, updated_at = $2
        WHERE id = $1 AND current_enrollment > 0
        RETURNING id, course_id, classroom_id, section_number, instructor_name,
        max_capacity, current_enrollment, semester, academic_year, created_at, updated_at`

// IncrementEnrollmentTx atomically takes one seat within the supplied
// transaction. The guard in the WHERE clause makes the check-and-update
// a single statement, so concurrent callers racing for the last seat
// serialise on the row lock and at most one succeeds. sql.ErrNoRows
// means the section was missing or already full.
func (r *SectionRepository) IncrementEnrollmentTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error) {
	var section models.Section
	if err := tx.GetContext(ctx, &section, incrementEnrollmentQuery, id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &section, nil
}

// DecrementEnrollmentTx atomically releases one seat within the
// supplied transaction. sql.ErrNoRows means the section was missing or
// its counter was already zero.
func (r *SectionRepository) DecrementEnrollmentTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error) {
	var section models.Section
	if err := tx.GetContext(ctx, &section, decrementEnrollmentQuery, id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &section, nil
}
