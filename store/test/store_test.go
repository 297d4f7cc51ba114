package teststore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/store"
	"github.com/hrygo/planweaver/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	p := profile.Default()
	p.DSN = filepath.Join(t.TempDir(), "planweaver_test.db")

	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)

	s := store.New(driver, p)
	require.NoError(t, s.Migrate(context.Background()))

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func sampleSchedule(date string) *store.DailySchedule {
	return &store.DailySchedule{
		Date: date,
		Activities: []store.Activity{
			{StartMinutes: 420, EndMinutes: 480, Title: "晨跑", Description: "在河边慢跑，顺便听播客醒醒脑", Type: "运动"},
			{StartMinutes: 480, EndMinutes: 540, Title: "早餐", Description: "简单吃点粥和包子，补充能量", Type: "饮食"},
		},
		RoundsUsed:   1,
		QualityScore: 0.9,
		Model:        "gpt-4o-mini",
		Provider:     "openai",
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.UpsertSchedule(ctx, sampleSchedule("2025-11-25"))
	require.NoError(t, err)
	require.NotEmpty(t, created.UID)
	require.NotZero(t, created.ID)

	byDate, err := s.GetScheduleByDate(ctx, "2025-11-25")
	require.NoError(t, err)
	require.Equal(t, created.UID, byDate.UID)
	require.Len(t, byDate.Activities, 2)
	require.Equal(t, "晨跑", byDate.Activities[0].Title)
	require.Equal(t, 0.9, byDate.QualityScore)

	byUID, err := s.GetScheduleByUID(ctx, created.UID)
	require.NoError(t, err)
	require.Equal(t, "2025-11-25", byUID.Date)
}

func TestGetMissingScheduleReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetScheduleByDate(ctx, "2025-01-01")
	require.ErrorIs(t, err, store.ErrScheduleNotFound)
}

func TestUpsertOverwritesSameDate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.UpsertSchedule(ctx, sampleSchedule("2025-11-25"))
	require.NoError(t, err)

	second := sampleSchedule("2025-11-25")
	second.RoundsUsed = 2
	second.QualityScore = 0.95
	_, err = s.UpsertSchedule(ctx, second)
	require.NoError(t, err)

	got, err := s.GetScheduleByDate(ctx, "2025-11-25")
	require.NoError(t, err)
	require.Equal(t, 2, got.RoundsUsed)
	require.Equal(t, 0.95, got.QualityScore)

	// Still exactly one row for the date.
	list, err := s.ListRecentSchedules(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_ = first
}

func TestListRecentSchedulesOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, date := range []string{"2025-11-23", "2025-11-25", "2025-11-24"} {
		_, err := s.UpsertSchedule(ctx, sampleSchedule(date))
		require.NoError(t, err)
	}

	list, err := s.ListRecentSchedules(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "2025-11-25", list[0].Date)
	require.Equal(t, "2025-11-24", list[1].Date)
}

func TestDeleteSchedule(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.UpsertSchedule(ctx, sampleSchedule("2025-11-25"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteSchedule(ctx, created.UID))

	_, err = s.GetScheduleByDate(ctx, "2025-11-25")
	require.ErrorIs(t, err, store.ErrScheduleNotFound)
}

func TestDeleteSchedulesBefore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpsertSchedule(ctx, sampleSchedule("2000-01-01"))
	require.NoError(t, err)
	_, err = s.UpsertSchedule(ctx, sampleSchedule("2999-01-01"))
	require.NoError(t, err)

	deleted, err := s.DeleteSchedulesBefore(ctx, 30)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = s.GetScheduleByDate(ctx, "2999-01-01")
	require.NoError(t, err)
}
