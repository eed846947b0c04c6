package documents

import (
	"fmt"
	"strings"
	"time"

	"flightbook/pkg/model"

	"github.com/valyala/fasttemplate"
)

const invoiceTemplate = `INVOICE [reference]
Issued:   [issued]
Flight:   [flight]
Contact:  [contact]

[lines]
TOTAL     [total] [currency]
Payment   [method] ([status]) [transaction]
`

var invoiceTmpl = fasttemplate.New(invoiceTemplate, "[", "]")

func (renderer) Invoice(payment *model.Payment, booking *model.Booking) ([]byte, error) {
	if !issuable(booking) && booking.Status != model.BookingCancelled {
		return nil, ErrNotIssuable
	}
	if payment.Status != model.PaymentPaid && payment.Status != model.PaymentRefunded {
		return nil, ErrNotPaid
	}

	var lines strings.Builder
	for _, p := range booking.Passengers {
		fmt.Fprintf(&lines, "%-4s %-16s %-24s %s\n",
			p.Seat.Number,
			classLabel(p.Seat.Class),
			p.FirstName+" "+p.LastName,
			FormatMinor(p.Seat.Price),
		)
	}

	issued := payment.UpdatedAt
	if payment.PaidAt != nil {
		issued = *payment.PaidAt
	}

	out := invoiceTmpl.ExecuteString(map[string]any{
		"reference":   booking.Reference,
		"issued":      issued.UTC().Format(time.RFC3339),
		"flight":      booking.FlightID,
		"contact":     booking.ContactEmail,
		"lines":       lines.String(),
		"total":       FormatMinor(payment.Amount),
		"currency":    payment.Currency,
		"method":      payment.Method,
		"status":      payment.Status,
		"transaction": payment.TransactionID,
	})
	return []byte(out), nil
}

// FormatMinor renders an amount in minor units with two decimals.
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
