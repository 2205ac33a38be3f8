package schedule

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "schedules.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func slot(course string, week, day int, start, end string) models.ScheduleInput {
	return models.ScheduleInput{
		CourseName: course,
		Week:       week,
		DayOfWeek:  day,
		StartTime:  start,
		EndTime:    end,
		Location:   "A101",
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, slot("数据结构", 1, 0, "08:00", "09:40"))
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 {
		t.Error("created schedule should have an ID")
	}
	if created.DayName != "周一" {
		t.Errorf("day name = %s, want 周一", created.DayName)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CourseName != "数据结构" || got.StartTime != "08:00" || got.EndTime != "09:40" {
		t.Errorf("round trip mangled the schedule: %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   models.ScheduleInput
	}{
		{"empty course", slot("", 1, 0, "08:00", "09:40")},
		{"week too low", slot("c", 0, 0, "08:00", "09:40")},
		{"week too high", slot("c", 19, 0, "08:00", "09:40")},
		{"day out of range", slot("c", 1, 7, "08:00", "09:40")},
		{"bad time format", slot("c", 1, 0, "8 o'clock", "09:40")},
		{"end before start", slot("c", 1, 0, "10:00", "09:00")},
		{"zero duration", slot("c", 1, 0, "10:00", "10:00")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Create(ctx, tc.in); !models.IsValidationError(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, slot("算法", 3, 1, "10:00", "11:40")); err != nil {
		t.Fatal(err)
	}

	// Overlapping window for the same course, week, and day.
	if _, err := s.Create(ctx, slot("算法", 3, 1, "11:00", "12:00")); !models.IsValidationError(err) {
		t.Errorf("overlap should be rejected, got %v", err)
	}
	// Touching boundaries do not overlap.
	if _, err := s.Create(ctx, slot("算法", 3, 1, "11:40", "12:30")); err != nil {
		t.Errorf("adjacent slot should be allowed: %v", err)
	}
	// Same window is fine for a different course, day, or week.
	if _, err := s.Create(ctx, slot("操作系统", 3, 1, "10:00", "11:40")); err != nil {
		t.Errorf("different course should be allowed: %v", err)
	}
	if _, err := s.Create(ctx, slot("算法", 3, 2, "10:00", "11:40")); err != nil {
		t.Errorf("different day should be allowed: %v", err)
	}
	if _, err := s.Create(ctx, slot("算法", 4, 1, "10:00", "11:40")); err != nil {
		t.Errorf("different week should be allowed: %v", err)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, slot("编译原理", 2, 4, "14:00", "15:40"))
	if err != nil {
		t.Fatal(err)
	}

	updated, err := s.Update(ctx, created.ID, slot("编译原理", 2, 4, "16:00", "17:40"))
	if err != nil {
		t.Fatal(err)
	}
	if updated.StartTime != "16:00" {
		t.Errorf("start time = %s, want 16:00", updated.StartTime)
	}

	// Updating a slot onto itself must not trip the overlap check.
	if _, err := s.Update(ctx, created.ID, slot("编译原理", 2, 4, "16:00", "17:40")); err != nil {
		t.Errorf("self-update should be allowed: %v", err)
	}

	if _, err := s.Update(ctx, 9999, slot("c", 1, 0, "08:00", "09:00")); err == nil {
		t.Error("updating a missing schedule should fail")
	}
}

func TestListOrdersByWeekDayStart(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, in := range []models.ScheduleInput{
		slot("b", 2, 0, "08:00", "09:00"),
		slot("a", 1, 3, "10:00", "11:00"),
		slot("c", 1, 0, "14:00", "15:00"),
		slot("d", 1, 0, "08:00", "09:00"),
	} {
		if _, err := s.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("list length = %d, want 4", len(all))
	}
	wantCourses := []string{"d", "c", "a", "b"}
	for i, want := range wantCourses {
		if all[i].CourseName != want {
			t.Errorf("position %d = %s, want %s", i, all[i].CourseName, want)
		}
	}

	week1, err := s.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(week1) != 3 {
		t.Errorf("week 1 list length = %d, want 3", len(week1))
	}
}

func TestWeeklyViewGroupsByDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, in := range []models.ScheduleInput{
		slot("a", 5, 0, "08:00", "09:00"),
		slot("b", 5, 0, "10:00", "11:00"),
		slot("c", 5, 4, "14:00", "15:00"),
	} {
		if _, err := s.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	view, err := s.WeeklyView(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(view) != 2 {
		t.Fatalf("weekly view days = %d, want 2", len(view))
	}
	if view[0].DayOfWeek != 0 || len(view[0].Slots) != 2 {
		t.Errorf("first day = %d with %d slots, want day 0 with 2", view[0].DayOfWeek, len(view[0].Slots))
	}
	if view[1].DayOfWeek != 4 || view[1].DayName != "周五" {
		t.Errorf("second day = %d (%s), want 4 (周五)", view[1].DayOfWeek, view[1].DayName)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, slot("x", 1, 0, "08:00", "09:00"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, created.ID); err == nil {
		t.Error("deleted schedule should not be found")
	}
	if err := s.Delete(ctx, created.ID); err == nil {
		t.Error("deleting a missing schedule should fail")
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
