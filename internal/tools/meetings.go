package tools

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
)

var (
	badWeatherConditions  = []string{"Rain", "Drizzle", "Thunderstorm", "Snow", "Mist", "Fog"}
	goodWeatherConditions = []string{"Clear", "Clouds"}
	isoLayouts            = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ForecastSource is the part of the weather client the meeting tools need.
type ForecastSource interface {
	Configured() bool
	Lookup(ctx context.Context, endpoint, city string) (map[string]any, error)
}

// ScheduleArgs are the inputs of the plain schedule tool. Times use domain.TimeLayout.
type ScheduleArgs struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Participants string `json:"participants"`
	Location     string `json:"location"`
}

// CancelArgs are the inputs of the cancel tool.
type CancelArgs struct {
	DateFilter string `json:"date_filter"`
	MeetingIDs string `json:"meeting_ids"`
}

// WeatherCheckedArgs are the inputs of the weather gated schedule tool. Times are ISO 8601.
type WeatherCheckedArgs struct {
	Title        string `json:"title"`
	StartTime    string `json:"start_time_str"`
	EndTime      string `json:"end_time_str"`
	Participants string `json:"participants"`
	City         string `json:"city"`
}

// MeetingTools schedules and cancels meetings.
type MeetingTools struct {
	repo    domain.MeetingRepository
	weather ForecastSource
	now     func() time.Time
}

// NewMeetingTools creates the meeting tools. weather may be nil, which disables the weather gate.
func NewMeetingTools(repo domain.MeetingRepository, weather ForecastSource) *MeetingTools {
	return &MeetingTools{repo: repo, weather: weather, now: time.Now}
}

// Schedule inserts a meeting without any conflict check.
func (t *MeetingTools) Schedule(ctx context.Context, args ScheduleArgs) string {
	meeting, err := t.schedule(ctx, args)
	if err != nil {
		log.Warn().Err(err).Str("title", args.Title).Msg("Failed to schedule meeting")
		return fmt.Sprintf("❌ Failed to schedule meeting: %v", err)
	}

	log.Info().Int64("meeting_id", meeting.ID).Str("title", meeting.Title).Msg("Meeting scheduled")
	return fmt.Sprintf("✅ Meeting scheduled successfully! ID: %d, Title: %s, Time: %s to %s",
		meeting.ID, args.Title, args.StartTime, args.EndTime)
}

func (t *MeetingTools) schedule(ctx context.Context, args ScheduleArgs) (*domain.Meeting, error) {
	start, err := time.ParseInLocation(domain.TimeLayout, args.StartTime, time.Local)
	if err != nil {
		return nil, fmt.Errorf("time data %q does not match format %q", args.StartTime, domain.TimeLayout)
	}
	end, err := time.ParseInLocation(domain.TimeLayout, args.EndTime, time.Local)
	if err != nil {
		return nil, fmt.Errorf("time data %q does not match format %q", args.EndTime, domain.TimeLayout)
	}

	meeting := &domain.Meeting{
		Title:        args.Title,
		Description:  args.Description,
		Location:     args.Location,
		StartTime:    start,
		EndTime:      end,
		Participants: args.Participants,
	}
	if err := t.repo.Create(ctx, meeting); err != nil {
		return nil, err
	}
	return meeting, nil
}

// Cancel deletes the meetings selected by an id list or a date filter in one transaction.
func (t *MeetingTools) Cancel(ctx context.Context, args CancelArgs) string {
	if args.DateFilter == "" {
		args.DateFilter = "all"
	}

	filter, err := domain.ParseCancelFilter(args.DateFilter, args.MeetingIDs, t.now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDateFilter) {
			return fmt.Sprintf("❌ Invalid date format: %s. Use 'today', 'tomorrow', 'all', or 'YYYY-MM-DD'", args.DateFilter)
		}
		return fmt.Sprintf("❌ Failed to cancel meetings: %v", err)
	}

	cancelled, err := t.repo.DeleteMatching(ctx, filter)
	if err != nil {
		log.Error().Err(err).Str("filter", args.DateFilter).Msg("Failed to cancel meetings")
		return fmt.Sprintf("❌ Failed to cancel meetings: %v", err)
	}
	if len(cancelled) == 0 {
		return fmt.Sprintf("No meetings found to cancel for filter: %s", args.DateFilter)
	}

	lines := make([]string, 0, len(cancelled))
	for _, m := range cancelled {
		lines = append(lines, fmt.Sprintf("  • '%s' at %s", m.Title, m.StartTime.Format(domain.TimeLayout)))
	}

	log.Info().Int("count", len(cancelled)).Str("filter", args.DateFilter).Msg("Meetings cancelled")
	return fmt.Sprintf("✅ Cancelled %d meeting(s):\n", len(cancelled)) + strings.Join(lines, "\n")
}

// ScheduleWithWeatherCheck books a meeting only when the forecast for the city is good and
// the slot does not overlap an existing meeting. The overlap check and the insert are not
// atomic against concurrent callers.
func (t *MeetingTools) ScheduleWithWeatherCheck(ctx context.Context, args WeatherCheckedArgs) string {
	start, err1 := ParseISOTime(args.StartTime)
	end, err2 := ParseISOTime(args.EndTime)
	if err1 != nil || err2 != nil {
		return "Invalid date format. Use ISO format (YYYY-MM-DDTHH:MM:SS)."
	}

	if args.City != "" && t.weather != nil && t.weather.Configured() {
		if msg, ok := t.checkWeather(ctx, args.City); !ok {
			return msg
		}
	}

	meeting := &domain.Meeting{
		Title:        args.Title,
		StartTime:    start,
		EndTime:      end,
		Participants: args.Participants,
	}
	if args.City != "" {
		meeting.Description = "Weather-checked meeting in " + args.City
	}

	conflicts, err := t.reserve(ctx, meeting)
	if errors.Is(err, domain.ErrMeetingConflict) {
		details := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			details = append(details, fmt.Sprintf("'%s' (%s - %s)",
				c.Title, c.StartTime.Format(domain.TimeLayout), c.EndTime.Format(domain.TimeLayout)))
		}
		return fmt.Sprintf("❌ Meeting conflict detected with: %s. Please choose a different time slot.", strings.Join(details, ", "))
	}
	if err != nil {
		return fmt.Sprintf("❌ Failed to schedule meeting: %v", err)
	}

	note := ""
	if args.City != "" {
		note = fmt.Sprintf(" (Weather in %s is favorable)", args.City)
	}
	return fmt.Sprintf("✅ Meeting '%s' scheduled successfully from %s to %s%s.",
		args.Title, start.Format(domain.TimeLayout), end.Format(domain.TimeLayout), note)
}

// checkWeather returns a refusal message and false when the forecast is not good enough.
// A non-200 answer from the API skips the check.
func (t *MeetingTools) checkWeather(ctx context.Context, city string) (string, bool) {
	forecast, err := t.weather.Lookup(ctx, "forecast", city)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			log.Warn().Int("status", apiErr.StatusCode).Str("city", city).Msg("Forecast unavailable, skipping weather gate")
			return "", true
		}
		return fmt.Sprintf("Weather check failed: %v. Meeting not scheduled for safety.", err), false
	}

	if list, _ := forecast["list"].([]any); len(list) == 0 {
		return "", true
	}

	condition := ForecastCondition(forecast)
	log.Info().Str("city", city).Str("condition", condition).Msg("Weather gate")

	switch {
	case slices.Contains(badWeatherConditions, condition):
		return fmt.Sprintf("❌ Meeting NOT scheduled. Weather condition '%s' is unfavorable in %s. Recommendation: Reschedule to a day with better weather.", condition, city), false
	case !slices.Contains(goodWeatherConditions, condition):
		return fmt.Sprintf("⚠️ Meeting NOT scheduled. Weather condition '%s' is uncertain in %s. Recommendation: Check forecast again closer to meeting time.", condition, city), false
	}
	return "", true
}

// reserve inserts m unless it overlaps existing meetings, in which case the overlapping
// meetings are returned with domain.ErrMeetingConflict.
func (t *MeetingTools) reserve(ctx context.Context, m *domain.Meeting) ([]domain.Meeting, error) {
	conflicts, err := t.repo.FindOverlapping(ctx, m.StartTime, m.EndTime)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return conflicts, domain.ErrMeetingConflict
	}
	return nil, t.repo.Create(ctx, m)
}

// ParseISOTime parses an ISO 8601 local date-time, with or without seconds, or a bare date.
func ParseISOTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid isoformat string: %q", s)
}
