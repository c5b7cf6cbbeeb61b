// Package render turns a booking snapshot into the unsigned contract document.
//
// Output depends only on the booking: no clock, no locale, no map iteration.
// Rendering the same booking twice yields identical bytes, which is what makes
// the stored hash reproducible.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	bookingModels "ranchdesk/internal/booking/models"
)

const (
	ContentTypeText = "text/plain; charset=utf-8"
	dateLayout      = "2006-01-02"
)

// Document is a rendered artifact ready to be hashed and stored.
type Document struct {
	Body        []byte
	ContentType string
	Ext         string
}

// Renderer produces the document for a booking.
type Renderer interface {
	Render(b bookingModels.Booking) (Document, error)
}

type view struct {
	BookingID string
	Label     string
	Unit      string
	StartDate string
	EndDate   string
	Nights    int
	Price     string
}

const agreement = `RANCH STAY AGREEMENT
====================

Booking reference: {{.BookingID}}
Guest booking:     {{.Label}}
Unit:              {{.Unit}}
Arrival:           {{.StartDate}}
Departure:         {{.EndDate}}
Nights:            {{.Nights}}
Total price:       {{.Price}}

1. OCCUPANCY. The guest may occupy the unit named above from the arrival
   date to the departure date. Occupancy beyond the departure date requires
   a new booking.

2. PAYMENT. The total price above is due according to the booking terms
   agreed at confirmation. This agreement does not itself collect payment.

3. CARE OF PROPERTY. The guest will leave the unit, fences, gates and
   livestock areas in the condition they were found, and will follow
   posted ranch safety rules at all times.

4. LIABILITY. Horseback riding and ranch activities carry inherent risk.
   The guest accepts those risks for all members of the party.

5. ENTIRE AGREEMENT. This document together with the confirmed booking is
   the entire agreement between the ranch and the guest.

Guest signature: ______________________________

Ranch signature: ______________________________
`

// TextRenderer renders a plain-text agreement.
type TextRenderer struct {
	tmpl *template.Template
}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{tmpl: template.Must(template.New("agreement").Option("missingkey=error").Parse(agreement))}
}

func (r *TextRenderer) Render(b bookingModels.Booking) (Document, error) {
	v := view{
		BookingID: b.ID.String(),
		Label:     clean(b.Label),
		Unit:      clean(b.Unit),
		StartDate: b.StartDate.UTC().Format(dateLayout),
		EndDate:   b.EndDate.UTC().Format(dateLayout),
		Nights:    b.Nights(),
		Price:     b.Price.String(),
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return Document{}, fmt.Errorf("render agreement: %w", err)
	}
	return Document{Body: buf.Bytes(), ContentType: ContentTypeText, Ext: "txt"}, nil
}

// clean keeps a field on one line so it can't forge additional clauses.
func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
