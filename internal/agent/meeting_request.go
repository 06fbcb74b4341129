package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
)

// ErrNoMeetingDetails is returned when the model answer holds no JSON object.
var ErrNoMeetingDetails = errors.New("no meeting details in model response")

var (
	firstNumber   = regexp.MustCompile(`\d+`)
	nonClockChars = regexp.MustCompile(`[^\d:]`)
)

// Defaults applied to fields the model leaves out.
const (
	DefaultMeetingTitle = "Meeting"
	DefaultMeetingTime  = "14:00"
	DefaultMeetingCity  = "Chennai"
)

// MeetingRequest is the structured form of a free-text scheduling request.
type MeetingRequest struct {
	Title         string
	Date          string
	Time          string
	City          string
	Location      string
	Participants  string
	DurationHours int
}

type rawMeetingRequest struct {
	Title         *string `json:"title"`
	Date          *string `json:"date"`
	Time          *string `json:"time"`
	City          *string `json:"city"`
	Location      *string `json:"location"`
	Participants  *string `json:"participants"`
	DurationHours any     `json:"duration_hours"`
}

// ParseMeetingRequest extracts the first brace-delimited object of a model answer and fills
// the defaults. Nested objects are not supported: the match stops at the first '}'.
func ParseMeetingRequest(content string) (MeetingRequest, error) {
	obj, ok := llm.ExtractJSONObject(content)
	if !ok {
		return MeetingRequest{}, ErrNoMeetingDetails
	}

	var raw rawMeetingRequest
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return MeetingRequest{}, err
	}

	req := MeetingRequest{
		Title:        valueOr(raw.Title, DefaultMeetingTitle),
		Date:         valueOr(raw.Date, ""),
		Time:         valueOr(raw.Time, DefaultMeetingTime),
		City:         valueOr(raw.City, DefaultMeetingCity),
		Participants: valueOr(raw.Participants, ""),
	}
	req.Location = valueOr(raw.Location, req.City)

	duration, err := parseDuration(raw.DurationHours)
	if err != nil {
		return MeetingRequest{}, err
	}
	req.DurationHours = duration

	return req, nil
}

func valueOr(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return strings.TrimSpace(*v)
}

func parseDuration(v any) (int, error) {
	switch d := v.(type) {
	case nil:
		return 1, nil
	case float64:
		return int(d), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(d))
		if err != nil {
			return 0, fmt.Errorf("invalid duration_hours %q", d)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid duration_hours %v", v)
	}
}

// ResolveDate maps "today" and "tomorrow" relative to now and checks a literal date.
func (r MeetingRequest) ResolveDate(now time.Time) (string, error) {
	lower := strings.ToLower(r.Date)
	switch {
	case strings.Contains(lower, "tomorrow"):
		return now.AddDate(0, 0, 1).Format(domain.DateLayout), nil
	case strings.Contains(lower, "today"), r.Date == "":
		return now.Format(domain.DateLayout), nil
	}

	if _, err := time.Parse(domain.DateLayout, r.Date); err != nil {
		return "", fmt.Errorf("time data %q does not match format 'YYYY-MM-DD'", r.Date)
	}
	return r.Date, nil
}

// ClockTime converts the requested time to HH:MM. An "Npm" time
// without "12" becomes N+12 on the hour (minutes are dropped); anything else keeps only
// digits and colons, and a bare hour gets ":00".
func (r MeetingRequest) ClockTime() (string, error) {
	if strings.Contains(strings.ToLower(r.Time), "pm") && !strings.Contains(r.Time, "12") {
		digits := firstNumber.FindString(r.Time)
		if digits == "" {
			return "", fmt.Errorf("no hour in time %q", r.Time)
		}
		hour, err := strconv.Atoi(digits)
		if err != nil {
			return "", fmt.Errorf("invalid hour in time %q", r.Time)
		}
		return fmt.Sprintf("%02d:00", hour+12), nil
	}

	clock := nonClockChars.ReplaceAllString(r.Time, "")
	if len(clock) <= 2 {
		clock += ":00"
	}
	return clock, nil
}

// Window returns the start and end timestamps ("YYYY-MM-DD HH:MM:SS"). The end keeps the
// start minutes and adds DurationHours to the hour.
func (r MeetingRequest) Window(now time.Time) (string, string, error) {
	date, err := r.ResolveDate(now)
	if err != nil {
		return "", "", err
	}
	clock, err := r.ClockTime()
	if err != nil {
		return "", "", err
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid time %q", r.Time)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("invalid hour in time %q", r.Time)
	}

	start := fmt.Sprintf("%s %s:00", date, clock)
	end := fmt.Sprintf("%s %02d:%s:00", date, hour+r.DurationHours, parts[1])
	return start, end, nil
}
