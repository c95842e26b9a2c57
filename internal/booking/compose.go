package booking

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
)

// Roles of the side-effect records of one transition. Each role maps to a
// deterministic id so replays insert the same rows.
const (
	roleCustomerNotification = "customer_notification"
	roleBusinessNotification = "business_notification"
	roleResponseMessage      = "response_message"
)

func sideEffectID(transitionID uuid.UUID, role string) uuid.UUID {
	return uuid.NewSHA1(transitionID, []byte(role))
}

// FormatPounds renders pence as £X.YY.
func FormatPounds(pence int64) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	return fmt.Sprintf("%s£%d.%02d", sign, pence/100, pence%100)
}

func serviceLabel(b *model.BookingRequest) string {
	if b.ServiceName == "" {
		return "service"
	}
	return b.ServiceName
}

// CustomerNotification builds the alert sent to the customer for a status.
// refund is the outcome of the refund trigger and may be nil.
func CustomerNotification(b *model.BookingRequest, status model.BookingStatus, refund *RefundOutcome) (typ, title, body string) {
	svc := serviceLabel(b)
	switch status {
	case model.StatusAccepted:
		return model.NotifBookingAccepted, "Booking Confirmed!", fmt.Sprintf("Your %s booking has been accepted.", svc)
	case model.StatusCompleted:
		return model.NotifBookingCompleted, "Service Completed", fmt.Sprintf("Your %s booking has been completed.", svc)
	case model.StatusDeclined:
		return model.NotifBookingDeclined, "Booking Update", fmt.Sprintf("Your %s booking has been declined.", svc)
	default:
		body = fmt.Sprintf("Your %s booking has been cancelled.", svc)
		if refund != nil && refund.Success {
			body += fmt.Sprintf(" A refund of %s has been issued and should appear in your account within 5-10 business days.",
				FormatPounds(refund.AmountCents))
		}
		return model.NotifBookingCancelled, "Booking Cancelled", body
	}
}

// BusinessCancellationNotice builds the confirmation sent to the business
// owner after the business cancelled a booking.
func BusinessCancellationNotice(b *model.BookingRequest, reason string, refund *RefundOutcome) (typ, title, body string) {
	body = fmt.Sprintf("You cancelled the %s booking.", serviceLabel(b))
	if reason != "" {
		body += fmt.Sprintf(" Reason: %s.", reason)
	}
	switch {
	case refund == nil:
	case refund.Success:
		body += fmt.Sprintf(" The customer's payment of %s has been refunded.", FormatPounds(refund.AmountCents))
	default:
		body += " The automatic refund to the customer failed and needs manual review."
	}
	return model.NotifBookingCancellationConfirmed, "Booking Cancelled", body
}

// ResponseSubject is the subject of the message carrying a business response.
func ResponseSubject(b *model.BookingRequest) string {
	return fmt.Sprintf("Re: your %s booking", serviceLabel(b))
}
