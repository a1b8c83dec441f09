// Package ical renders appointments as an iCalendar (RFC 5545) feed so the
// console's agenda can be subscribed to from external calendar clients.
package ical

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/repairops/internal/persistence"
)

const (
	prodID     = "-//RepairOps//Console//NL"
	timeLayout = "20060102T150405Z"
	maxLineLen = 75
)

// Export renders appointments as a complete VCALENDAR document. Occurrences
// of a recurring series share their series id in the UID so calendar clients
// group them.
func Export(appointments []persistence.Appointment, generatedAt time.Time) string {
	var b strings.Builder
	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "PRODID:"+prodID)
	writeLine(&b, "CALSCALE:GREGORIAN")

	stamp := generatedAt.UTC().Format(timeLayout)
	for _, appointment := range appointments {
		writeLine(&b, "BEGIN:VEVENT")
		writeLine(&b, "UID:"+appointment.ID+"@repairops")
		writeLine(&b, "DTSTAMP:"+stamp)
		writeLine(&b, "DTSTART:"+appointment.Start.UTC().Format(timeLayout))
		writeLine(&b, "DTEND:"+appointment.End.UTC().Format(timeLayout))
		writeLine(&b, "SUMMARY:"+escapeText(appointment.Title))
		if appointment.Location != nil && *appointment.Location != "" {
			writeLine(&b, "LOCATION:"+escapeText(*appointment.Location))
		}
		if appointment.Description != nil && *appointment.Description != "" {
			writeLine(&b, "DESCRIPTION:"+escapeText(*appointment.Description))
		}
		if appointment.MeetingLink != nil && *appointment.MeetingLink != "" {
			writeLine(&b, "URL:"+*appointment.MeetingLink)
		}
		writeLine(&b, "CATEGORIES:"+strings.ToUpper(appointment.Type))
		if appointment.SeriesID != "" && appointment.SeriesID != appointment.ID {
			writeLine(&b, "RELATED-TO:"+appointment.SeriesID+"@repairops")
		}
		writeLine(&b, "END:VEVENT")
	}

	writeLine(&b, "END:VCALENDAR")
	return b.String()
}

// escapeText escapes text per RFC 5545 section 3.3.11.
func escapeText(value string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
	)
	return replacer.Replace(value)
}

// writeLine writes a content line, folding anything longer than 75 octets
// with a CRLF plus space continuation. The fold may only land between
// characters (RFC 5545 section 3.1), never inside a multi-byte sequence.
func writeLine(b *strings.Builder, line string) {
	for len(line) > maxLineLen {
		cut := maxLineLen
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}
