package service

import (
	"fmt"
	"net/url"
	"time"

	"eventbooking/internal/models"
)

const (
	calendarBaseURL    = "https://calendar.google.com/calendar/r/eventedit"
	calendarTimeFormat = "20060102T150405Z"
	payloadTimeFormat  = "2006-01-02T15:04"
)

// confirmationPayload is the text encoded into the confirmation QR image.
func confirmationPayload(event *models.Event, booking *models.Booking) string {
	return fmt.Sprintf("Event: %s Seats: %d Start Date: %s End Date: %s",
		event.Name,
		booking.SeatsBooked,
		event.StartTime.UTC().Format(payloadTimeFormat),
		event.EndTime.UTC().Format(payloadTimeFormat))
}

// CalendarLink builds a Google Calendar template link for a confirmed booking.
func CalendarLink(event *models.Event, booker *models.User) string {
	details := "Booking"
	if booker != nil {
		details = fmt.Sprintf("Booking for %s (%s)", booker.Name, booker.Email)
	}
	if event.Description != "" {
		details += " " + event.Description
	}

	return calendarBaseURL +
		"?text=" + url.QueryEscape(event.Name) +
		"&dates=" + calendarDate(event.StartTime) + "/" + calendarDate(event.EndTime) +
		"&details=" + url.QueryEscape(details)
}

func calendarDate(t time.Time) string {
	return t.UTC().Format(calendarTimeFormat)
}
