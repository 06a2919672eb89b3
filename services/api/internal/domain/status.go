package domain

type Status string

const (
	StatusPendingOwner   Status = "pending_owner"
	StatusWaitingPayment Status = "waiting_payment"
	StatusConfirmed      Status = "confirmed"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusRejected       Status = "rejected"
	StatusCancelled      Status = "cancelled"
	StatusExpiredOwner   Status = "expired_owner"
	StatusExpiredPayment Status = "expired_payment"
)

var allStatuses = []Status{
	StatusPendingOwner,
	StatusWaitingPayment,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
	StatusExpiredOwner,
	StatusExpiredPayment,
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusExpiredOwner, StatusExpiredPayment:
		return true
	}
	return false
}

// HasDeadline reports whether s carries an SLA deadline.
func (s Status) HasDeadline() bool {
	return s == StatusPendingOwner || s == StatusWaitingPayment
}

// Engaged reports whether both parties are committed (payment settled).
func (s Status) Engaged() bool {
	return s == StatusConfirmed || s == StatusInProgress || s == StatusCompleted
}

type Role string

const (
	RoleClient Role = "client"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleClient, RoleOwner, RoleAdmin:
		return r, nil
	}
	return "", ErrInvalidRole
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

// Trigger names an edge of the booking lifecycle.
type Trigger string

const (
	TriggerAccept               Trigger = "accept"
	TriggerReject               Trigger = "reject"
	TriggerCancel               Trigger = "cancel"
	TriggerExpireOwner          Trigger = "expire_owner"
	TriggerSettlePayment        Trigger = "settle_payment"
	TriggerExpirePayment        Trigger = "expire_payment"
	TriggerValidateDeliveryCode Trigger = "validate_delivery_code"
	TriggerCompleteReturn       Trigger = "complete_return"
)

// Action is a user-facing operation exposed by the action gate.
type Action string

const (
	ActionAccept               Action = "accept"
	ActionReject               Action = "reject"
	ActionPay                  Action = "pay"
	ActionCancel               Action = "cancel"
	ActionMessage              Action = "message"
	ActionLeaveReview          Action = "leaveReview"
	ActionDownloadInvoice      Action = "downloadInvoice"
	ActionValidateDeliveryCode Action = "validateDeliveryCode"
	ActionNone                 Action = "none"
)
