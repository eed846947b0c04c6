package documents

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"flightbook/pkg/model"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

const (
	ticketWidth   = 640
	headerHeight  = 56
	rowHeight     = 22
	ticketPadding = 24
)

var (
	ticketBackground = color.RGBA{250, 250, 252, 255}
	ticketHeader     = color.RGBA{24, 54, 104, 255}
	ticketText       = color.RGBA{30, 32, 36, 255}
	ticketMuted      = color.RGBA{110, 115, 120, 255}
	ticketRule       = color.RGBA{200, 204, 210, 255}
)

func (renderer) Ticket(booking *model.Booking) ([]byte, error) {
	if !issuable(booking) {
		return nil, ErrNotIssuable
	}

	height := headerHeight + ticketPadding*3 + rowHeight*(len(booking.Passengers)+3)
	dc := gg.NewContext(ticketWidth, height)
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(ticketBackground)
	dc.Clear()

	dc.SetColor(ticketHeader)
	dc.DrawRectangle(0, 0, ticketWidth, headerHeight)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawStringAnchored("BOARDING DOCUMENT", ticketPadding, headerHeight/2, 0, 0.5)
	dc.DrawStringAnchored(booking.Reference, ticketWidth-ticketPadding, headerHeight/2, 1, 0.5)

	y := float64(headerHeight + ticketPadding)
	dc.SetColor(ticketMuted)
	dc.DrawString(fmt.Sprintf("FLIGHT %s   STATUS %s", booking.FlightID, strings.ToUpper(booking.Status)), ticketPadding, y)

	y += rowHeight
	dc.SetColor(ticketRule)
	dc.DrawLine(ticketPadding, y-rowHeight/2, ticketWidth-ticketPadding, y-rowHeight/2)
	dc.Stroke()

	dc.SetColor(ticketMuted)
	drawColumns(dc, y, "PASSENGER", "SEAT", "CLASS")
	dc.SetColor(ticketText)
	for _, p := range booking.Passengers {
		y += rowHeight
		name := strings.ToUpper(p.LastName + "/" + p.FirstName)
		drawColumns(dc, y, name, p.Seat.Number, classLabel(p.Seat.Class))
	}

	y += rowHeight + ticketPadding/2
	dc.SetColor(ticketMuted)
	dc.DrawString("Issued to "+booking.ContactEmail, ticketPadding, y)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return buf.Bytes(), nil
}

func drawColumns(dc *gg.Context, y float64, name, seat, class string) {
	dc.DrawString(name, ticketPadding, y)
	dc.DrawString(seat, ticketWidth*0.6, y)
	dc.DrawString(class, ticketWidth*0.75, y)
}

func classLabel(class string) string {
	return strings.ToUpper(strings.ReplaceAll(class, "_", " "))
}
