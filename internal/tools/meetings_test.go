package tools

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sibikrish3000/cr-agent/internal/config"
	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/repository/sqldb"
)

type mockForecast struct {
	mock.Mock
}

func (m *mockForecast) Configured() bool {
	return m.Called().Bool(0)
}

func (m *mockForecast) Lookup(ctx context.Context, endpoint, city string) (map[string]any, error) {
	args := m.Called(ctx, endpoint, city)
	forecast, _ := args.Get(0).(map[string]any)
	return forecast, args.Error(1)
}

func forecastWith(condition string) map[string]any {
	return map[string]any{"list": []any{
		map[string]any{"weather": []any{map[string]any{"main": condition}}},
	}}
}

func newMeetingRepo(t *testing.T) *sqldb.MeetingRepository {
	t.Helper()
	db, err := sqldb.NewDB(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "meetings.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqldb.RunMigrations(db))
	return sqldb.NewMeetingRepository(db)
}

func TestMeetingTools_Schedule(t *testing.T) {
	ctx := context.Background()
	repo := newMeetingRepo(t)
	mt := NewMeetingTools(repo, nil)

	out := mt.Schedule(ctx, ScheduleArgs{
		Title:        "Team Meeting",
		Description:  "Weather: clear sky, 30°C",
		StartTime:    "2030-03-04 14:00:00",
		EndTime:      "2030-03-04 15:00:00",
		Participants: "John",
		Location:     "Chennai",
	})
	assert.Equal(t, "✅ Meeting scheduled successfully! ID: 1, Title: Team Meeting, Time: 2030-03-04 14:00:00 to 2030-03-04 15:00:00", out)

	meetings, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "Chennai", meetings[0].Location)
	assert.Equal(t, "Weather: clear sky, 30°C", meetings[0].Description)

	out = mt.Schedule(ctx, ScheduleArgs{Title: "Broken", StartTime: "tomorrow 2pm", EndTime: "2030-03-04 15:00:00"})
	assert.True(t, strings.HasPrefix(out, "❌ Failed to schedule meeting: "), out)
}

func TestMeetingTools_Cancel(t *testing.T) {
	ctx := context.Background()
	repo := newMeetingRepo(t)
	mt := NewMeetingTools(repo, nil)
	mt.now = func() time.Time { return time.Date(2030, 3, 3, 10, 0, 0, 0, time.Local) }

	for _, args := range []ScheduleArgs{
		{Title: "Standup", StartTime: "2030-03-04 09:00:00", EndTime: "2030-03-04 09:15:00"},
		{Title: "Review", StartTime: "2030-03-04 16:00:00", EndTime: "2030-03-04 17:00:00"},
		{Title: "Planning", StartTime: "2030-03-10 10:00:00", EndTime: "2030-03-10 11:00:00"},
	} {
		require.Contains(t, mt.Schedule(ctx, args), "✅")
	}

	t.Run("invalid date", func(t *testing.T) {
		out := mt.Cancel(ctx, CancelArgs{DateFilter: "next week"})
		assert.Equal(t, "❌ Invalid date format: next week. Use 'today', 'tomorrow', 'all', or 'YYYY-MM-DD'", out)
	})

	t.Run("nothing matched", func(t *testing.T) {
		out := mt.Cancel(ctx, CancelArgs{DateFilter: "today"})
		assert.Equal(t, "No meetings found to cancel for filter: today", out)
	})

	t.Run("tomorrow", func(t *testing.T) {
		out := mt.Cancel(ctx, CancelArgs{DateFilter: "tomorrow"})
		assert.Equal(t, "✅ Cancelled 2 meeting(s):\n  • 'Standup' at 2030-03-04 09:00:00\n  • 'Review' at 2030-03-04 16:00:00", out)
	})

	t.Run("all by default", func(t *testing.T) {
		out := mt.Cancel(ctx, CancelArgs{})
		assert.Equal(t, "✅ Cancelled 1 meeting(s):\n  • 'Planning' at 2030-03-10 10:00:00", out)

		meetings, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, meetings)
	})
}

func TestMeetingTools_ScheduleWithWeatherCheck(t *testing.T) {
	ctx := context.Background()
	args := WeatherCheckedArgs{
		Title:        "Offsite",
		StartTime:    "2030-03-04T10:00:00",
		EndTime:      "2030-03-04T12:00:00",
		Participants: "John, Priya",
		City:         "Chennai",
	}

	t.Run("invalid time", func(t *testing.T) {
		mt := NewMeetingTools(newMeetingRepo(t), nil)
		bad := args
		bad.StartTime = "next monday"
		assert.Equal(t, "Invalid date format. Use ISO format (YYYY-MM-DDTHH:MM:SS).", mt.ScheduleWithWeatherCheck(ctx, bad))
	})

	t.Run("bad weather", func(t *testing.T) {
		weather := new(mockForecast)
		weather.On("Configured").Return(true)
		weather.On("Lookup", mock.Anything, "forecast", "Chennai").Return(forecastWith("Rain"), nil)
		repo := newMeetingRepo(t)

		out := NewMeetingTools(repo, weather).ScheduleWithWeatherCheck(ctx, args)
		assert.Equal(t, "❌ Meeting NOT scheduled. Weather condition 'Rain' is unfavorable in Chennai. Recommendation: Reschedule to a day with better weather.", out)

		meetings, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, meetings)
		weather.AssertExpectations(t)
	})

	t.Run("uncertain weather", func(t *testing.T) {
		weather := new(mockForecast)
		weather.On("Configured").Return(true)
		weather.On("Lookup", mock.Anything, "forecast", "Chennai").Return(forecastWith("Haze"), nil)

		out := NewMeetingTools(newMeetingRepo(t), weather).ScheduleWithWeatherCheck(ctx, args)
		assert.Equal(t, "⚠️ Meeting NOT scheduled. Weather condition 'Haze' is uncertain in Chennai. Recommendation: Check forecast again closer to meeting time.", out)
	})

	t.Run("weather transport failure", func(t *testing.T) {
		weather := new(mockForecast)
		weather.On("Configured").Return(true)
		weather.On("Lookup", mock.Anything, "forecast", "Chennai").Return(nil, errors.New("connection refused"))

		out := NewMeetingTools(newMeetingRepo(t), weather).ScheduleWithWeatherCheck(ctx, args)
		assert.Equal(t, "Weather check failed: connection refused. Meeting not scheduled for safety.", out)
	})

	t.Run("api error skips the gate", func(t *testing.T) {
		weather := new(mockForecast)
		weather.On("Configured").Return(true)
		weather.On("Lookup", mock.Anything, "forecast", "Chennai").Return(nil, &APIError{StatusCode: 401, Body: "invalid key"})

		out := NewMeetingTools(newMeetingRepo(t), weather).ScheduleWithWeatherCheck(ctx, args)
		assert.Equal(t, "✅ Meeting 'Offsite' scheduled successfully from 2030-03-04 10:00:00 to 2030-03-04 12:00:00 (Weather in Chennai is favorable).", out)
	})

	t.Run("good weather then conflict", func(t *testing.T) {
		weather := new(mockForecast)
		weather.On("Configured").Return(true)
		weather.On("Lookup", mock.Anything, "forecast", "Chennai").Return(forecastWith("Clear"), nil)
		repo := newMeetingRepo(t)
		mt := NewMeetingTools(repo, weather)

		out := mt.ScheduleWithWeatherCheck(ctx, args)
		assert.Equal(t, "✅ Meeting 'Offsite' scheduled successfully from 2030-03-04 10:00:00 to 2030-03-04 12:00:00 (Weather in Chennai is favorable).", out)

		overlapping := args
		overlapping.Title = "Lunch"
		overlapping.StartTime = "2030-03-04T11:30:00"
		overlapping.EndTime = "2030-03-04T13:00:00"
		out = mt.ScheduleWithWeatherCheck(ctx, overlapping)
		assert.Equal(t, "❌ Meeting conflict detected with: 'Offsite' (2030-03-04 10:00:00 - 2030-03-04 12:00:00). Please choose a different time slot.", out)

		adjacent := overlapping
		adjacent.StartTime = "2030-03-04T12:00:00"
		assert.Contains(t, mt.ScheduleWithWeatherCheck(ctx, adjacent), "✅ Meeting 'Lunch' scheduled successfully")

		meetings, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, meetings, 2)
		assert.Equal(t, "Weather-checked meeting in Chennai", meetings[0].Description)
	})

	t.Run("no city skips weather", func(t *testing.T) {
		noCity := args
		noCity.City = ""
		out := NewMeetingTools(newMeetingRepo(t), nil).ScheduleWithWeatherCheck(ctx, noCity)
		assert.Equal(t, "✅ Meeting 'Offsite' scheduled successfully from 2030-03-04 10:00:00 to 2030-03-04 12:00:00.", out)
	})
}

func TestParseISOTime(t *testing.T) {
	for _, in := range []string{"2030-03-04T10:00:00", "2030-03-04 10:00:00", "2030-03-04T10:00"} {
		got, err := ParseISOTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(2030, 3, 4, 10, 0, 0, 0, time.Local), got)
	}

	day, err := ParseISOTime("2030-03-04")
	require.NoError(t, err)
	assert.Equal(t, domain.StartOfDay(day), day)

	_, err = ParseISOTime("03/04/2030")
	assert.Error(t, err)
}
