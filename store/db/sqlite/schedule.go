package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/planweaver/store"
)

func (d *DB) UpsertSchedule(ctx context.Context, upsert *store.DailySchedule) (*store.DailySchedule, error) {
	activities, err := json.Marshal(upsert.Activities)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activities: %w", err)
	}

	now := time.Now().Unix()
	if upsert.CreatedTs == 0 {
		upsert.CreatedTs = now
	}
	upsert.UpdatedTs = now

	stmt := `INSERT INTO daily_schedule (
			uid, date, created_ts, updated_ts,
			rounds_used, quality_score, model, provider, activities
		)
		VALUES (` + placeholders(9) + `)
		ON CONFLICT (date) DO UPDATE SET
			uid = excluded.uid,
			updated_ts = excluded.updated_ts,
			rounds_used = excluded.rounds_used,
			quality_score = excluded.quality_score,
			model = excluded.model,
			provider = excluded.provider,
			activities = excluded.activities
		RETURNING id, created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UID, upsert.Date, upsert.CreatedTs, upsert.UpdatedTs,
		upsert.RoundsUsed, upsert.QualityScore, upsert.Model, upsert.Provider, string(activities),
	).Scan(
		&upsert.ID,
		&upsert.CreatedTs,
		&upsert.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert schedule: %w", err)
	}

	return upsert, nil
}

func (d *DB) ListSchedules(ctx context.Context, find *store.FindSchedule) ([]*store.DailySchedule, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "daily_schedule.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "daily_schedule.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Date; v != nil {
		where, args = append(where, "daily_schedule.date = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, uid, date, created_ts, updated_ts,
			rounds_used, quality_score, model, provider, activities
		FROM daily_schedule
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY daily_schedule.date DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	list := make([]*store.DailySchedule, 0)
	for rows.Next() {
		var schedule store.DailySchedule
		var activities string

		if err := rows.Scan(
			&schedule.ID,
			&schedule.UID,
			&schedule.Date,
			&schedule.CreatedTs,
			&schedule.UpdatedTs,
			&schedule.RoundsUsed,
			&schedule.QualityScore,
			&schedule.Model,
			&schedule.Provider,
			&activities,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		if err := json.Unmarshal([]byte(activities), &schedule.Activities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activities: %w", err)
		}

		list = append(list, &schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteSchedule(ctx context.Context, delete *store.DeleteSchedule) error {
	stmt := `DELETE FROM daily_schedule WHERE uid = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, delete.UID); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

func (d *DB) DeleteSchedulesBefore(ctx context.Context, cutoffDate string) (int64, error) {
	stmt := `DELETE FROM daily_schedule WHERE date < ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old schedules: %w", err)
	}
	return result.RowsAffected()
}
