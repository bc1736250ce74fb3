package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rms-be/models"
)

//go:generate mockgen -destination=../mocks/mock_services.go -package=mocks rms-be/services Sender,MediaStore

// Sender delivers one HTML message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Notifier mails issue updates to reporters without blocking the caller.
// Delivery failures are logged and never reach the caller.
type Notifier struct {
	sender    Sender
	users     UserStore
	clientURL string
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewNotifier creates a new Notifier.
func NewNotifier(sender Sender, users UserStore, clientURL string) *Notifier {
	return &Notifier{
		sender:    sender,
		users:     users,
		clientURL: strings.TrimRight(clientURL, "/"),
		timeout:   30 * time.Second,
	}
}

// IssueUpdated queues a status mail about issue to its reporter.
func (n *Notifier) IssueUpdated(issue models.Issue, subject string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.deliver(ctx, issue, subject); err != nil {
			slog.Error("issue notification failed",
				"issue_id", issue.IssueID,
				"subject", subject,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every queued notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(ctx context.Context, issue models.Issue, subject string) error {
	reporter, err := n.users.FindUser(ctx, issue.ReportedBy)
	if err != nil {
		return fmt.Errorf("find reporter: %w", err)
	}
	if reporter.Email == "" {
		return nil
	}

	body, err := RenderIssueStatusEmail(issue, reporter.Name, n.clientURL)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, reporter.Email, subject, body); err != nil {
		return fmt.Errorf("%w: send mail: %v", models.ErrDependency, err)
	}
	return nil
}

var statusMessages = map[models.IssueStatus]string{
	models.StatusPending:    "Your issue has been reported and is awaiting review.",
	models.StatusApproved:   "Your reported issue has been approved and will be addressed soon.",
	models.StatusDeclined:   "Your reported issue has been declined. Please contact support if you have questions.",
	models.StatusInProgress: "Work has started on your reported issue.",
	models.StatusAssigned:   "Your issue has been assigned to a maintenance team.",
	models.StatusResolved:   "Your reported issue has been resolved. Thank you for your report.",
}

var issueStatusTemplate = template.Must(template.New("issue-status").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #2563EB; color: white; padding: 20px; text-align: center;">
    <h1>RMS - Road Management System</h1>
  </div>
  <div style="padding: 20px; background: #f9fafb;">
    <h2>Issue Status Update</h2>
    <p>Dear {{.Name}},</p>
    <p>{{.StatusMessage}}</p>
    <div style="background: white; padding: 15px; border-radius: 5px; margin: 15px 0;">
      <h3>Issue Details:</h3>
      <p><strong>Issue ID:</strong> {{.IssueID}}</p>
      <p><strong>Title:</strong> {{.Title}}</p>
      <p><strong>Status:</strong> {{.Status}}</p>
      <p><strong>Location:</strong> {{.Address}}</p>
    </div>
    <p>You can track your issue status by visiting our website.</p>
    <div style="text-align: center; margin: 20px 0;">
      <a href="{{.Link}}" style="background: #2563EB; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">View Issue Details</a>
    </div>
    <p>Thank you for helping us improve our roads!</p>
    <hr style="margin: 20px 0;">
    <p style="font-size: 12px; color: #666;">This is an automated email from RMS. Please do not reply to this email.</p>
  </div>
</div>
`))

// RenderIssueStatusEmail renders the HTML body sent to a reporter.
func RenderIssueStatusEmail(issue models.Issue, name, clientURL string) (string, error) {
	var buf bytes.Buffer
	err := issueStatusTemplate.Execute(&buf, struct {
		Name, StatusMessage, IssueID, Title, Status, Address, Link string
	}{
		Name:          name,
		StatusMessage: statusMessages[issue.Status],
		IssueID:       issue.IssueID,
		Title:         issue.Title,
		Status:        strings.ToUpper(string(issue.Status)),
		Address:       issue.Location.Address,
		Link:          clientURL + "/issue/" + issue.ID.Hex(),
	})
	if err != nil {
		return "", fmt.Errorf("render status email: %w", err)
	}
	return buf.String(), nil
}

// NoopSender drops every message; it is used when no SMTP host is configured.
type NoopSender struct{}

func (NoopSender) Send(_ context.Context, to, subject, _ string) error {
	slog.Debug("mail delivery disabled, dropping message", "to", to, "subject", subject)
	return nil
}
