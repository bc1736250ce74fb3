package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"rms-be/mocks"
	"rms-be/models"
)

func TestRenderIssueStatusEmail(t *testing.T) {
	issue := models.NewIssue(validInput(), "RMS10042", primitive.NewObjectID(), time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	issue.Status = models.StatusInProgress
	issue.Title = "Pothole <near> gate"

	body, err := RenderIssueStatusEmail(*issue, "Asha", "http://client.test")
	if err != nil {
		t.Fatalf("RenderIssueStatusEmail() error = %v", err)
	}
	for _, want := range []string{
		"Dear Asha,",
		"RMS10042",
		"IN-PROGRESS",
		"Work has started on your reported issue.",
		"Pothole &lt;near&gt; gate",
		"http://client.test/issue/" + issue.ID.Hex(),
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestNotifierSendsToReporter(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	f := newFixture(t, sender)

	sender.EXPECT().
		Send(gomock.Any(), "asha@example.com", "Issue Reported - RMS10001", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, body string) error {
			if !strings.Contains(body, "awaiting review") {
				t.Errorf("body = %q, want pending message", body)
			}
			return nil
		})

	f.report(t)
	f.notifier.Wait()
}

func TestNotifierSkipsReporterWithoutEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	f := newFixture(t, sender)
	silent := addUser(t, f.store, "Kiosk", "", models.RoleCitizen)

	issue := models.NewIssue(validInput(), "RMS10001", silent.ID, f.now)
	f.notifier.IssueUpdated(*issue, "Issue Reported - RMS10001")

	orphan := models.NewIssue(validInput(), "RMS10002", primitive.NewObjectID(), f.now)
	f.notifier.IssueUpdated(*orphan, "Issue Reported - RMS10002")

	f.notifier.Wait()
}
