package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
	"github.com/Sibikrish3000/cr-agent/internal/tools"
)

const meetingParsePrompt = `Extract meeting details from this request: "%s"

Return ONLY a JSON object with these fields:
- title: str (meeting title)
- date: str ("tomorrow", "today", or "YYYY-MM-DD")
- time: str ("14:00", "2pm", etc.)
- city: str (default "Chennai" if not mentioned)
- location: str (specific venue or city)
- participants: str (comma-separated names)
- duration_hours: int (default 1)

Example: {"title": "Team Meeting", "date": "tomorrow", "time": "14:00", "city": "Chennai", "location": "Conference Room A", "participants": "John, Sarah", "duration_hours": 1}`

const (
	meetingFailurePrefix  = "❌"
	weatherWarning        = "⚠️ Warning: Weather conditions may not be ideal for this meeting."
	meetingNotUnderstood  = "Could not understand meeting request. Please specify: title, date/time, and participants."
	meetingParseFailedFmt = "Could not parse meeting request: %v. Please provide title, date, time, and participants."
)

var (
	cancelVerbs        = []string{"cancel", "unschedule", "delete", "remove"}
	badWeatherKeywords = []string{"rain", "drizzle", "thunderstorm", "snow", "mist", "fog"}
)

// Forecaster returns a raw forecast; failures are reported under the "error" key.
type Forecaster interface {
	Forecast(ctx context.Context, city string) map[string]any
}

// Scheduler books and cancels meetings and reports the outcome as text.
type Scheduler interface {
	Schedule(ctx context.Context, args tools.ScheduleArgs) string
	Cancel(ctx context.Context, args tools.CancelArgs) string
}

// MeetingAgent schedules meetings after a forced weather check and handles cancellations.
type MeetingAgent struct {
	gateway   llm.Gateway
	weather   Forecaster
	scheduler Scheduler
	now       func() time.Time
}

// NewMeetingAgent creates the meeting agent.
func NewMeetingAgent(gateway llm.Gateway, weather Forecaster, scheduler Scheduler) *MeetingAgent {
	return &MeetingAgent{gateway: gateway, weather: weather, scheduler: scheduler, now: time.Now}
}

func (a *MeetingAgent) Kind() domain.Agent {
	return domain.AgentMeeting
}

func (a *MeetingAgent) Tools() []string {
	return nil
}

// Respond cancels or schedules depending on the wording of the last user message.
func (a *MeetingAgent) Respond(ctx context.Context, in Input) (llm.Message, error) {
	query := llm.LastUserMessage(in.Messages)
	if IsCancellation(query) {
		return llm.Assistant(a.cancel(ctx, query)), nil
	}

	resp, err := a.gateway.Generate(ctx, llm.ChatRequest{
		Messages:    []llm.Message{llm.User(fmt.Sprintf(meetingParsePrompt, query))},
		Temperature: llm.Temperature(0.1),
	})
	if err != nil {
		return llm.Message{}, fmt.Errorf("failed to parse meeting request: %w", err)
	}
	log.Debug().Str("content", resp.Content).Msg("Meeting request parsed")

	req, err := ParseMeetingRequest(resp.Content)
	if errors.Is(err, ErrNoMeetingDetails) {
		return llm.Assistant(meetingNotUnderstood), nil
	}
	if err != nil {
		return llm.Assistant(fmt.Sprintf(meetingParseFailedFmt, err)), nil
	}

	start, end, err := req.Window(a.now())
	if err != nil {
		return llm.Assistant(fmt.Sprintf(meetingParseFailedFmt, err)), nil
	}

	return llm.Assistant(a.schedule(ctx, req, start, end)), nil
}

// IsCancellation reports whether a request asks to cancel meetings.
func IsCancellation(query string) bool {
	q := strings.ToLower(query)
	return containsAny(q, cancelVerbs) && strings.Contains(q, "meeting")
}

// CancellationFilter picks the date scope of a cancellation request.
func CancellationFilter(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "tomorrow"):
		return "tomorrow"
	case strings.Contains(q, "today"):
		return "today"
	}
	return "all"
}

func (a *MeetingAgent) cancel(ctx context.Context, query string) string {
	filter := CancellationFilter(query)
	log.Info().Str("date_filter", filter).Msg("Forcing meeting cancellation")
	return a.scheduler.Cancel(ctx, tools.CancelArgs{DateFilter: filter})
}

func (a *MeetingAgent) schedule(ctx context.Context, req MeetingRequest, start, end string) string {
	log.Info().Str("city", req.City).Msg("Forcing weather forecast")
	emoji, summary, badWeather := "⚠️", "Unknown", false
	forecast := a.weather.Forecast(ctx, req.City)
	if errMsg, failed := forecast["error"]; failed {
		log.Warn().Interface("error", errMsg).Str("city", req.City).Msg("Weather check failed")
	} else {
		summary = tools.ForecastSummary(forecast)
		badWeather = containsAny(strings.ToLower(summary), badWeatherKeywords)
		emoji = "✅"
		if badWeather {
			emoji = "❌"
		}
	}

	log.Info().
		Str("title", req.Title).
		Str("start", start).
		Str("end", end).
		Bool("bad_weather", badWeather).
		Msg("Forcing meeting schedule")

	result := a.scheduler.Schedule(ctx, tools.ScheduleArgs{
		Title:        req.Title,
		Description:  "Weather: " + tools.Truncate(summary, 100),
		StartTime:    start,
		EndTime:      end,
		Participants: req.Participants,
		Location:     req.Location,
	})
	if strings.HasPrefix(result, meetingFailurePrefix) {
		return result
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Meeting scheduled!\n\n", emoji)
	fmt.Fprintf(&sb, "Title: %s\n\n", req.Title)
	fmt.Fprintf(&sb, "Time: %s to %s\n\n", start, end)
	fmt.Fprintf(&sb, "Location: %s\n\n", req.Location)
	fmt.Fprintf(&sb, "Participants: %s\n\n", req.Participants)
	fmt.Fprintf(&sb, "Weather: %s\n\n", tools.Truncate(summary, 200))
	if badWeather {
		sb.WriteString(weatherWarning)
	}
	return sb.String()
}
