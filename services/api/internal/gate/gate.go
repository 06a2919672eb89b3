// Package gate decides which actions a role may take on a booking and which
// booking fields it may see.
package gate

import (
	"time"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/deliverycode"
	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// Context carries the facts the gate cannot derive from status and role.
// ReviewEligible and InvoiceAvailable come from the authority.
type Context struct {
	Now              time.Time
	StartDate        time.Time
	DeliveryCodeUsed bool
	ReviewEligible   bool
	InvoiceAvailable bool
}

// ContextFor fills the booking-derived part of a Context.
func ContextFor(b domain.Booking, now time.Time, reviewEligible, invoiceAvailable bool) Context {
	return Context{
		Now:              now,
		StartDate:        b.StartDate,
		DeliveryCodeUsed: b.DeliveryCodeUsed(),
		ReviewEligible:   reviewEligible,
		InvoiceAvailable: invoiceAvailable,
	}
}

type rule struct {
	action   domain.Action
	statuses []domain.Status
	roles    []domain.Role
	extra    func(Context) bool
}

var engaged = []domain.Status{domain.StatusConfirmed, domain.StatusInProgress, domain.StatusCompleted}

var parties = []domain.Role{domain.RoleClient, domain.RoleOwner}

// Evaluated in this order; the output keeps it.
var rules = []rule{
	{action: domain.ActionAccept, statuses: []domain.Status{domain.StatusPendingOwner}, roles: []domain.Role{domain.RoleOwner}},
	{action: domain.ActionReject, statuses: []domain.Status{domain.StatusPendingOwner}, roles: []domain.Role{domain.RoleOwner}},
	{action: domain.ActionPay, statuses: []domain.Status{domain.StatusWaitingPayment}, roles: []domain.Role{domain.RoleClient}},
	{action: domain.ActionCancel, statuses: []domain.Status{domain.StatusPendingOwner, domain.StatusWaitingPayment}, roles: []domain.Role{domain.RoleClient}},
	{action: domain.ActionMessage, statuses: engaged, roles: parties},
	{
		action:   domain.ActionLeaveReview,
		statuses: []domain.Status{domain.StatusCompleted},
		roles:    []domain.Role{domain.RoleClient},
		extra:    func(c Context) bool { return c.ReviewEligible },
	},
	{
		action:   domain.ActionDownloadInvoice,
		statuses: engaged,
		roles:    parties,
		extra:    func(c Context) bool { return c.InvoiceAvailable },
	},
	{
		action:   domain.ActionValidateDeliveryCode,
		statuses: []domain.Status{domain.StatusConfirmed},
		roles:    []domain.Role{domain.RoleOwner},
		extra:    deliveryOpen,
	},
}

// Actions returns the ordered actions role may take in status. The result is
// never empty: when nothing is permitted it is [none].
func Actions(status domain.Status, role domain.Role, c Context) []domain.Action {
	var out []domain.Action
	for _, r := range rules {
		if !containsStatus(r.statuses, status) || !containsRole(r.roles, role) {
			continue
		}
		if r.extra != nil && !r.extra(c) {
			continue
		}
		out = append(out, r.action)
	}
	if len(out) == 0 {
		return []domain.Action{domain.ActionNone}
	}
	return out
}

// Allowed reports whether action is in actions.
func Allowed(actions []domain.Action, action domain.Action) bool {
	for _, a := range actions {
		if a == action {
			return action != domain.ActionNone
		}
	}
	return false
}

func deliveryOpen(c Context) bool {
	if c.DeliveryCodeUsed {
		return false
	}
	b := domain.Booking{StartDate: c.StartDate}
	return !deliverycode.BeforeStart(b, c.Now)
}

func containsStatus(list []domain.Status, s domain.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsRole(list []domain.Role, r domain.Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}
