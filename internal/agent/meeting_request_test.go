package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeetingRequest(t *testing.T) {
	content := "Sure!\n```json\n" + `{"title": "Team Meeting", "date": "tomorrow", "time": "2pm", "city": "Chennai", "location": "Conference Room A", "participants": "John", "duration_hours": 2}` + "\n```"

	req, err := ParseMeetingRequest(content)
	require.NoError(t, err)
	assert.Equal(t, MeetingRequest{
		Title:         "Team Meeting",
		Date:          "tomorrow",
		Time:          "2pm",
		City:          "Chennai",
		Location:      "Conference Room A",
		Participants:  "John",
		DurationHours: 2,
	}, req)
}

func TestParseMeetingRequest_Defaults(t *testing.T) {
	req, err := ParseMeetingRequest(`{"participants": "Sarah", "city": "Paris", "duration_hours": "3"}`)
	require.NoError(t, err)

	assert.Equal(t, DefaultMeetingTitle, req.Title)
	assert.Equal(t, DefaultMeetingTime, req.Time)
	assert.Equal(t, "Paris", req.City)
	assert.Equal(t, "Paris", req.Location)
	assert.Equal(t, 3, req.DurationHours)

	req, err = ParseMeetingRequest(`{"title": "Sync"}`)
	require.NoError(t, err)
	assert.Equal(t, DefaultMeetingCity, req.City)
	assert.Equal(t, 1, req.DurationHours)
}

func TestParseMeetingRequest_Errors(t *testing.T) {
	_, err := ParseMeetingRequest("I could not find any meeting details.")
	assert.ErrorIs(t, err, ErrNoMeetingDetails)

	_, err = ParseMeetingRequest(`{"title": "Sync", "duration_hours": "long"}`)
	assert.Error(t, err)
}

func TestMeetingRequest_ClockTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2pm", "14:00"},
		{"2:30pm", "14:00"},
		{"9am", "9:00"},
		{"12pm", "12:00"},
		{"14:00", "14:00"},
		{"10:30", "10:30"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := MeetingRequest{Time: tt.in}.ClockTime()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := MeetingRequest{Time: "pm"}.ClockTime()
	assert.Error(t, err)
}

func TestMeetingRequest_Window(t *testing.T) {
	now := time.Date(2030, 3, 3, 10, 0, 0, 0, time.Local)

	start, end, err := MeetingRequest{Date: "tomorrow", Time: "2pm", DurationHours: 1}.Window(now)
	require.NoError(t, err)
	assert.Equal(t, "2030-03-04 14:00:00", start)
	assert.Equal(t, "2030-03-04 15:00:00", end)

	start, end, err = MeetingRequest{Date: "", Time: "9:30", DurationHours: 2}.Window(now)
	require.NoError(t, err)
	assert.Equal(t, "2030-03-03 9:30:00", start)
	assert.Equal(t, "2030-03-03 11:30:00", end)

	start, _, err = MeetingRequest{Date: "2030-05-01", Time: "14:00", DurationHours: 1}.Window(now)
	require.NoError(t, err)
	assert.Equal(t, "2030-05-01 14:00:00", start)

	_, _, err = MeetingRequest{Date: "next friday", Time: "14:00", DurationHours: 1}.Window(now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match format 'YYYY-MM-DD'")
}
