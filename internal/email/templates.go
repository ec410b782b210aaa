package email

import (
	"fmt"
	"time"

	"github.com/tutorlaunch/api/internal/model"
)

const timeLayout = "Monday, Jan 2 2006 at 3:04 PM MST"

func ConfirmationEmail(b model.Booking, slot model.Slot) (subject, htmlBody string) {
	subject = "Your tutoring session is confirmed"
	htmlBody = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your session is confirmed for <strong>%s</strong>.</p><p>Goal: %s</p><p>See you then!</p>",
		b.StudentName, slot.StartTime.Format(timeLayout), b.Goal,
	)
	return subject, htmlBody
}

func ReceiptEmail(b model.Booking, slot model.Slot) (subject, htmlBody string) {
	subject = "Payment receipt"
	htmlBody = fmt.Sprintf(
		"<p>Hi %s,</p><p>We received your deposit of <strong>$%.2f</strong> for the session on %s.</p>",
		b.StudentName, float64(b.AmountCents)/100, slot.StartTime.Format(timeLayout),
	)
	return subject, htmlBody
}

func ReminderEmail(b model.Booking, slotStart time.Time) (subject, htmlBody string) {
	subject = "Reminder: your tutoring session is coming up"
	htmlBody = fmt.Sprintf(
		"<p>Hi %s,</p><p>This is a reminder that your session starts on <strong>%s</strong>.</p>",
		b.StudentName, slotStart.Format(timeLayout),
	)
	return subject, htmlBody
}
