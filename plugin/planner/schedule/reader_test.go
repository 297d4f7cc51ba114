package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/planweaver/plugin/planner/cache"
	"github.com/hrygo/planweaver/store"
)

type fakeStore struct {
	schedules map[string]*store.DailySchedule
	calls     int
}

func (f *fakeStore) GetScheduleByDate(ctx context.Context, date string) (*store.DailySchedule, error) {
	f.calls++
	s, ok := f.schedules[date]
	if !ok {
		return nil, store.ErrScheduleNotFound
	}
	return s, nil
}

func testSchedule(date string) *store.DailySchedule {
	return &store.DailySchedule{
		ID:   1,
		UID:  "uid-" + date,
		Date: date,
		Activities: []store.Activity{
			{StartMinutes: 540, EndMinutes: 720, Title: "写代码", Description: "专注完成当天的开发任务", Type: "工作"},
			{StartMinutes: 840, EndMinutes: 960, Title: "读论文", Description: "阅读最近收藏的两篇论文", Type: "学习"},
		},
	}
}

func newTestReader(fs *fakeStore) *Reader {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	return NewReader(fs, cache.NewMockCacheService(), 5*time.Minute, loc)
}

func TestReaderReadThrough(t *testing.T) {
	fs := &fakeStore{schedules: map[string]*store.DailySchedule{
		"2026-03-01": testSchedule("2026-03-01"),
	}}
	r := newTestReader(fs)
	ctx := context.Background()

	got, err := r.GetByDate(ctx, "2026-03-01")
	require.NoError(t, err)
	require.Equal(t, "uid-2026-03-01", got.UID)
	require.Equal(t, 1, fs.calls)

	// Second read is served from cache.
	got, err = r.GetByDate(ctx, "2026-03-01")
	require.NoError(t, err)
	require.Len(t, got.Activities, 2)
	require.Equal(t, 1, fs.calls)
}

func TestReaderNotFoundPassesThrough(t *testing.T) {
	fs := &fakeStore{schedules: map[string]*store.DailySchedule{}}
	r := newTestReader(fs)

	_, err := r.GetByDate(context.Background(), "2026-03-02")
	require.ErrorIs(t, err, store.ErrScheduleNotFound)

	ok, err := r.HasScheduleFor(context.Background(), "2026-03-02")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReaderInvalidateDate(t *testing.T) {
	fs := &fakeStore{schedules: map[string]*store.DailySchedule{
		"2026-03-01": testSchedule("2026-03-01"),
	}}
	r := newTestReader(fs)
	ctx := context.Background()

	_, err := r.GetByDate(ctx, "2026-03-01")
	require.NoError(t, err)
	require.Equal(t, 1, fs.calls)

	r.InvalidateDate(ctx, "2026-03-01")

	_, err = r.GetByDate(ctx, "2026-03-01")
	require.NoError(t, err)
	require.Equal(t, 2, fs.calls)
}

func TestReaderSnapshotAt(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, loc)
	date := at.Format(store.DateLayout)

	fs := &fakeStore{schedules: map[string]*store.DailySchedule{
		date: testSchedule(date),
	}}
	r := newTestReader(fs)

	snap, err := r.SnapshotAt(context.Background(), at)
	require.NoError(t, err)
	require.Equal(t, date, snap.Date)
	require.NotNil(t, snap.Current)
	require.Equal(t, "写代码", snap.Current.Title)
	require.Len(t, snap.Upcoming, 1)
	require.Equal(t, "读论文", snap.Upcoming[0].Title)
}

func TestReaderSnapshotAtIdleGap(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	at := time.Date(2026, 3, 1, 13, 0, 0, 0, loc)
	date := at.Format(store.DateLayout)

	fs := &fakeStore{schedules: map[string]*store.DailySchedule{
		date: testSchedule(date),
	}}
	r := newTestReader(fs)

	snap, err := r.SnapshotAt(context.Background(), at)
	require.NoError(t, err)
	require.Nil(t, snap.Current)
	require.Len(t, snap.Upcoming, 1)
}
