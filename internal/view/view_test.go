package view

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calview/internal/metrics"
	"calview/internal/model"
	"calview/internal/window"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleEvents() []model.Event {
	return []model.Event{
		{ID: "A", Start: day(2024, 1, 3), End: day(2024, 1, 5), AllDay: true},
		{ID: "B", Start: day(2023, 12, 20), End: day(2023, 12, 25), AllDay: true},
		{ID: "T", Start: day(2024, 1, 4).Add(9 * time.Hour), End: day(2024, 1, 4).Add(10 * time.Hour)},
		{ID: "X", Start: day(2024, 1, 6), End: day(2024, 1, 5)},
	}
}

func TestDefaultRegistryViews(t *testing.T) {
	w, err := window.New(day(2024, 1, 1), day(2024, 1, 8))
	require.NoError(t, err)
	r := Default("", nil)

	assert.Equal(t, []string{Agenda, Custom}, r.Names())

	t.Run("custom shows all-day segments only", func(t *testing.T) {
		out, err := r.Render(Custom, w, sampleEvents())
		require.NoError(t, err)

		assert.Equal(t, Custom, out.Name)
		assert.Equal(t, "January 1, 2024", out.Title)
		assert.Equal(t, 1, out.Count)
		assert.Equal(t, "A", out.Segments[0].EventID)
		assert.Empty(t, out.Skipped)
		assert.Equal(t, day(2024, 1, 1), out.RangeStart)
		assert.Equal(t, day(2024, 1, 8), out.RangeEnd)
	})

	t.Run("agenda includes timed events and reports malformed ones", func(t *testing.T) {
		out, err := r.Render(Agenda, w, sampleEvents())
		require.NoError(t, err)

		assert.Equal(t, 2, out.Count)
		assert.Len(t, out.Segments, out.Count)
		assert.Equal(t, []string{"X"}, out.Skipped)
	})
}

func TestSlicingTitleLayout(t *testing.T) {
	w, err := window.New(day(2024, 3, 9), day(2024, 3, 10))
	require.NoError(t, err)

	out, err := Slicing("day", false, "2006-01-02")(w, nil)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-09", out.Title)
	assert.Equal(t, 0, out.Count)
	assert.NotNil(t, out.Segments)
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry(nil)
	fn := Slicing("x", false, "")

	require.NoError(t, r.Register("x", fn))

	err := r.Register("x", fn)
	assert.True(t, errors.Is(err, ErrDuplicateView))

	assert.Error(t, r.Register("", fn))
	assert.Error(t, r.Register("nil", nil))
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := Default("", nil)

	assert.Panics(t, func() { r.MustRegister(Custom, Slicing(Custom, true, "")) })
	assert.NotPanics(t, func() { r.MustRegister("week", Slicing("week", false, "")) })
	assert.Contains(t, r.Names(), "week")
}

func TestRenderUnknownView(t *testing.T) {
	w, err := window.New(day(2024, 1, 1), day(2024, 1, 2))
	require.NoError(t, err)

	_, err = Default("", nil).Render("month-grid", w, nil)
	assert.True(t, errors.Is(err, ErrUnknownView))
}

func TestRenderPropagatesViewErrors(t *testing.T) {
	w, err := window.New(day(2024, 1, 1), day(2024, 1, 2))
	require.NoError(t, err)
	r := NewRegistry(nil)
	boom := errors.New("boom")
	require.NoError(t, r.Register("broken", func(window.DateWindow, []model.Event) (Output, error) {
		return Output{}, boom
	}))

	_, err = r.Render("broken", w, nil)
	assert.True(t, errors.Is(err, boom))
}

func TestRenderRecordsMetrics(t *testing.T) {
	w, err := window.New(day(2024, 1, 1), day(2024, 1, 8))
	require.NoError(t, err)
	rec := metrics.New()
	r := Default("", rec)

	_, err = r.Render(Agenda, w, sampleEvents())
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(rec.Registry(), "calview_view_renders_total", "calview_malformed_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
