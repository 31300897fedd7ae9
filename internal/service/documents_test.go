package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"eventbooking/internal/models"
)

func TestCalendarLink(t *testing.T) {
	event := &models.Event{
		Name:        "Go Meetup",
		Description: "Lightning talks",
		StartTime:   time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2026, 5, 1, 21, 30, 0, 0, time.UTC),
	}
	booker := &models.User{Name: "Ada", Email: "ada@example.com"}

	link := CalendarLink(event, booker)

	assert.Equal(t,
		"https://calendar.google.com/calendar/r/eventedit?text=Go+Meetup"+
			"&dates=20260501T180000Z/20260501T213000Z"+
			"&details=Booking+for+Ada+%28ada%40example.com%29+Lightning+talks",
		link)
}

func TestCalendarLinkWithoutBooker(t *testing.T) {
	event := &models.Event{
		Name:      "Go Meetup",
		StartTime: time.Date(2026, 5, 1, 18, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		EndTime:   time.Date(2026, 5, 1, 20, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
	}

	link := CalendarLink(event, nil)

	assert.Contains(t, link, "dates=20260501T160000Z/20260501T180000Z")
	assert.Contains(t, link, "details=Booking")
}

func TestConfirmationPayload(t *testing.T) {
	event := &models.Event{
		Name:      "Go Meetup",
		StartTime: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC),
	}

	got := confirmationPayload(event, &models.Booking{SeatsBooked: 3})

	assert.Equal(t, "Event: Go Meetup Seats: 3 Start Date: 2026-05-01T18:00 End Date: 2026-05-01T21:00", got)
}
