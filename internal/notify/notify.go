// Package notify mails run outcomes to operators. Sync runs usually fire
// from cron with nobody watching the terminal; a failed run that nobody
// hears about is punches silently piling up on the device.
package notify

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/rida-louchachha/punchsync/internal/engine"
)

// Mailer sends plain-text notifications over SMTP. The zero value is a
// disabled mailer; Send and RunFailed then return an error naming the
// missing configuration.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Enabled reports whether the mailer has enough configuration to send.
func (m *Mailer) Enabled() bool {
	return m.Host != "" && m.From != "" && len(m.To) > 0
}

// Send delivers one plain-text message to every configured recipient.
func (m *Mailer) Send(subject, body string) error {
	if !m.Enabled() {
		return errors.New("mailer not configured: need smtp host, sender, and recipients")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	return nil
}

// RunFailed mails the outcome of a failed sync run: the error, the
// counters up to the failure, and any recovered problems.
func (m *Mailer) RunFailed(rep *engine.Report, runErr error) error {
	return m.Send(failureSubject(rep), FailureBody(rep, runErr))
}

func failureSubject(rep *engine.Report) string {
	return fmt.Sprintf("punchsync: run on device %s failed", rep.DeviceID)
}

// FailureBody renders the failure message. Split out so the rendering is
// testable without an SMTP server.
func FailureBody(rep *engine.Report, runErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sync run %s on device %s failed.\n\n", rep.RunID, rep.DeviceID)
	if runErr != nil {
		fmt.Fprintf(&b, "Error: %v\n\n", runErr)
	}
	fmt.Fprintf(&b, "Progress before the failure:\n")
	fmt.Fprintf(&b, "  punches fetched: %d\n", rep.Fetched)
	fmt.Fprintf(&b, "  audit rows upserted: %d\n", rep.Upserted)
	fmt.Fprintf(&b, "  spans created: %d, closed: %d, discarded: %d\n",
		rep.SpansCreated, rep.SpansClosed, rep.SpansDiscarded)
	fmt.Fprintf(&b, "  skipped: %d\n", rep.Skipped)
	if len(rep.Errors) > 0 {
		fmt.Fprintf(&b, "\nRecovered problems:\n")
		for _, msg := range rep.Errors {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
	}
	fmt.Fprintf(&b, "\nCommitted rows are intact; re-running the sync is safe.\n")
	return b.String()
}
