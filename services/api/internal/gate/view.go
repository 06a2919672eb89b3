package gate

import "github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"

// View is a booking as one role is allowed to see it. Hidden fields are
// zeroed in Booking and flagged false so encoders can omit them.
type View struct {
	Booking             domain.Booking
	OwnerContact        bool
	DeliveryCode        bool
	OnlinePaymentAmount bool
}

// Project redacts b for role.
//
//   - Clients only see the owner's identity and contact once the booking is
//     confirmed, in progress or completed.
//   - The delivery code is handed over by the client, so owners never see it.
//   - Owners do not see the platform-collected share of the price.
func Project(b domain.Booking, role domain.Role) View {
	v := View{
		Booking:             b.Clone(),
		OwnerContact:        true,
		DeliveryCode:        b.DeliveryCode != "",
		OnlinePaymentAmount: true,
	}

	if role == domain.RoleClient && !b.Status.Engaged() {
		v.Booking.Owner = domain.User{ID: b.Owner.ID}
		v.OwnerContact = false
	}
	if role == domain.RoleOwner {
		v.Booking.DeliveryCode = ""
		v.DeliveryCode = false
		v.Booking.OnlinePaymentAmount = 0
		v.OnlinePaymentAmount = false
	}
	return v
}
