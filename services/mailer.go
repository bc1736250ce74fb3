package services

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
)

const mailFromName = "RMS System"

// SMTPSender sends mail through an SMTP relay, upgrading to STARTTLS when
// the relay offers it.
type SMTPSender struct {
	host string
	from string
	opts []mail.Option
}

// NewSMTPSender creates a new SMTPSender. Credentials are optional; without
// a username no SMTP AUTH is attempted.
func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithPort(port),
		mail.WithTimeout(30 * time.Second),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}

	// Validate the options once so a bad port fails at startup.
	if _, err := mail.NewClient(host, opts...); err != nil {
		return nil, fmt.Errorf("configure smtp client: %w", err)
	}
	return &SMTPSender{host: host, from: from, opts: opts}, nil
}

// Send delivers one HTML message. Every network operation is bounded by ctx:
// its deadline is applied to the connection and cancelling it aborts any
// pending read or write.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(mailFromName, s.from); err != nil {
		return fmt.Errorf("mail sender %q: %w", s.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	dialer := &boundDialer{ctx: ctx}
	defer dialer.release()

	client, err := mail.NewClient(s.host, slices.Concat(s.opts, []mail.Option{mail.WithDialContextFunc(dialer.DialContext)})...)
	if err != nil {
		return fmt.Errorf("configure smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("send mail to %s: %w", to, ctxErr)
		}
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// boundDialer ties the lifetime of every connection it opens to ctx.
type boundDialer struct {
	ctx context.Context

	mu    sync.Mutex
	stops []func() bool
}

func (d *boundDialer) DialContext(dialCtx context.Context, network, addr string) (net.Conn, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(dialCtx, network, addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := d.ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}

	stop := context.AfterFunc(d.ctx, func() {
		conn.SetDeadline(time.Now())
	})
	d.mu.Lock()
	d.stops = append(d.stops, stop)
	d.mu.Unlock()
	return conn, nil
}

func (d *boundDialer) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, stop := range d.stops {
		stop()
	}
	d.stops = nil
}
