package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the wall-clock format meetings are exchanged and stored in.
const TimeLayout = "2006-01-02 15:04:05"

// DateLayout is the calendar date format used by date filters.
const DateLayout = "2006-01-02"

var (
	ErrMeetingConflict   = errors.New("meeting conflict")
	ErrInvalidDateFilter = errors.New("invalid date filter")
	ErrInvalidMeetingID  = errors.New("invalid meeting id")
)

// Meeting represents a scheduled meeting
type Meeting struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Participants string    `json:"participants,omitempty"`
}

// Overlaps reports whether the half-open intervals [start,end) intersect.
func (m Meeting) Overlaps(start, end time.Time) bool {
	return m.StartTime.Before(end) && m.EndTime.After(start)
}

// CancelFilter selects meetings for bulk cancellation. IDs take precedence over Day;
// a nil Day with no IDs selects every meeting.
type CancelFilter struct {
	IDs   []int64
	Day   *time.Time
	Label string
}

// ParseCancelFilter resolves a date filter ("all", "today", "tomorrow" or YYYY-MM-DD)
// and an optional comma separated id list relative to now.
func ParseCancelFilter(dateFilter, meetingIDs string, now time.Time) (CancelFilter, error) {
	if dateFilter == "" {
		dateFilter = "all"
	}
	filter := CancelFilter{Label: dateFilter}

	if strings.TrimSpace(meetingIDs) != "" {
		for _, raw := range strings.Split(meetingIDs, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return CancelFilter{}, fmt.Errorf("%w: %q", ErrInvalidMeetingID, raw)
			}
			filter.IDs = append(filter.IDs, id)
		}
		return filter, nil
	}

	today := StartOfDay(now)
	switch dateFilter {
	case "all":
	case "today":
		filter.Day = &today
	case "tomorrow":
		tomorrow := today.AddDate(0, 0, 1)
		filter.Day = &tomorrow
	default:
		day, err := time.ParseInLocation(DateLayout, dateFilter, now.Location())
		if err != nil {
			return CancelFilter{}, fmt.Errorf("%w: %s", ErrInvalidDateFilter, dateFilter)
		}
		filter.Day = &day
	}
	return filter, nil
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// MeetingRepository defines the interface for meeting storage
type MeetingRepository interface {
	Create(ctx context.Context, meeting *Meeting) error
	FindOverlapping(ctx context.Context, start, end time.Time) ([]Meeting, error)
	// DeleteMatching selects and deletes the matching meetings in one transaction.
	DeleteMatching(ctx context.Context, filter CancelFilter) ([]Meeting, error)
	List(ctx context.Context) ([]Meeting, error)
}
