package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-admin-service/internal/app"
)

// EmailSender is the transport the dispatcher hands messages to.
type EmailSender interface {
	Send(ctx context.Context, email app.CertificateEmail) Result
}

// Dispatcher satisfies app.Notifier: Notify submits the send on its own
// goroutine and returns immediately. Provider latency or outages never
// slow or fail the attempt-update path that triggered the email.
type Dispatcher struct {
	sender  EmailSender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender EmailSender) *Dispatcher {
	return &Dispatcher{sender: sender, timeout: 30 * time.Second}
}

func (d *Dispatcher) Notify(email app.CertificateEmail) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		res := d.sender.Send(ctx, email)
		if !res.OK {
			log.Printf("certificate email to %s not sent: %s", email.To, res.Reason)
			return
		}
		log.Printf("certificate email to %s sent, provider id %s", email.To, res.ID)
	}()
}

// Wait blocks until in-flight sends finish; used by shutdown and tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
