package worker

import (
	"encoding/json"
	"fmt"

	id "ranchdesk/pkg/domain"
)

// Trigger names what asked for the contract.
const (
	TriggerBookingConfirmed = "booking.confirmed"
	TriggerAdminRequested   = "admin.requested"
)

// Message asks for a booking's contract to be generated or regenerated.
type Message struct {
	BookingID id.BookingID
	Trigger   string
}

type payload struct {
	BookingID string `json:"bookingId"`
	Trigger   string `json:"trigger"`
}

// Encode renders the queue payload.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(payload{BookingID: m.BookingID.String(), Trigger: m.Trigger})
}

// Decode parses a queue payload. The booking id is required.
func Decode(data []byte) (Message, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Message{}, fmt.Errorf("decode contract request: %w", err)
	}
	bookingID, err := id.ParseBookingID(p.BookingID)
	if err != nil {
		return Message{}, fmt.Errorf("decode contract request: %w", err)
	}
	if bookingID.IsNil() {
		return Message{}, fmt.Errorf("decode contract request: booking id is required")
	}
	return Message{BookingID: bookingID, Trigger: p.Trigger}, nil
}
