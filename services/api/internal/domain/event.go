package domain

import "time"

// BookingEvent is emitted after a lifecycle change has been committed.
type BookingEvent struct {
	ID         string
	Type       string
	BookingID  string
	Status     Status
	ActorID    string
	ActorRole  Role
	OccurredAt time.Time
}

const EventBookingCreated = "booking.created"

var eventTypes = map[Trigger]string{
	TriggerAccept:               "booking.accepted",
	TriggerReject:               "booking.rejected",
	TriggerCancel:               "booking.cancelled",
	TriggerExpireOwner:          "booking.expired_owner",
	TriggerSettlePayment:        "booking.confirmed",
	TriggerExpirePayment:        "booking.expired_payment",
	TriggerValidateDeliveryCode: "booking.started",
	TriggerCompleteReturn:       "booking.completed",
}

// EventType names the event published for trigger.
func EventType(trigger Trigger) string {
	if t, ok := eventTypes[trigger]; ok {
		return t
	}
	return "booking." + string(trigger)
}
