package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	if err := row.Scan(&s.ID, &s.DoctorID, &s.AvailableTime, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.AvailableTime = s.AvailableTime.UTC()
	return &s, nil
}

func (r *PgRepository) Create(ctx context.Context, doctorID int64, at time.Time) (*Slot, error) {
	// the unique constraint decides; no row back means someone got there first
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctor_available_slots (doctor_id, available_time, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (doctor_id, available_time) DO NOTHING
		RETURNING id, doctor_id, available_time, created_at
	`, doctorID, at)

	s, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotExists
		}
		return nil, fmt.Errorf("insert slot: %w", err)
	}
	return s, nil
}

func (r *PgRepository) ListAfter(ctx context.Context, doctorID int64, after time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, available_time, created_at
		FROM doctor_available_slots
		WHERE doctor_id = $1
		  AND available_time > $2
		ORDER BY available_time ASC
	`, doctorID, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) DeleteByDoctor(ctx context.Context, doctorID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctor_available_slots WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, fmt.Errorf("delete slots of doctor %d: %w", doctorID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctor_available_slots WHERE available_time < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete slots before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
