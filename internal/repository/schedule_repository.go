package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/univreg/registrar-api/internal/models"
)

// ScheduleRepository handles persistence of schedule slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListBySection returns all slots of a section ordered by day and start time.
func (r *ScheduleRepository) ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleSlot, error) {
	const query = `SELECT id, section_id, day_of_week, start_time, end_time, created_at, updated_at
        FROM schedule_slots WHERE section_id = $1 ORDER BY day_of_week, start_time`
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section slots: %w", err)
	}
	return slots, nil
}

// FindByID returns a slot by its ID.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	const query = `SELECT id, section_id, day_of_week, start_time, end_time, created_at, updated_at
        FROM schedule_slots WHERE id = $1`
	var slot models.ScheduleSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create persists a new schedule slot.
func (r *ScheduleRepository) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	const query = `INSERT INTO schedule_slots (id, section_id, day_of_week, start_time, end_time, created_at, updated_at)
        VALUES (:id, :section_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create schedule slot: %w", err)
	}
	return nil
}

// Update persists day and time changes for a slot.
func (r *ScheduleRepository) Update(ctx context.Context, slot *models.ScheduleSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_slots SET day_of_week = :day_of_week, start_time = :start_time,
        end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update schedule slot: %w", err)
	}
	return nil
}

// Delete removes a schedule slot.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule slot: %w", err)
	}
	return nil
}

// FindClassroomConflict returns the earliest-starting booked slot in the
// classroom that overlaps the proposed half-open interval on the given
// day, or nil when the room is free. excludeSlotID allows in-place edits
// of an existing slot without self-conflicting.
func (r *ScheduleRepository) FindClassroomConflict(ctx context.Context, classroomID string, day models.DayOfWeek, start, end, excludeSlotID string) (*models.ClassroomConflict, error) {
	query := `SELECT sl.id, sl.section_id, c.name AS course_name, sl.day_of_week, sl.start_time, sl.end_time, s.classroom_id
        FROM schedule_slots sl
        JOIN sections s ON s.id = sl.section_id
        LEFT JOIN courses c ON c.id = s.course_id
        WHERE s.classroom_id = $1 AND sl.day_of_week = $2 AND sl.start_time < $4 AND sl.end_time > $3`
	args := []interface{}{classroomID, day, start, end}
	if excludeSlotID != "" {
		query += fmt.Sprintf(" AND sl.id <> $%d", len(args)+1)
		args = append(args, excludeSlotID)
	}
	query += " ORDER BY sl.start_time ASC LIMIT 1"

	var conflict models.ClassroomConflict
	if err := r.db.GetContext(ctx, &conflict, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find classroom conflict: %w", err)
	}
	return &conflict, nil
}
