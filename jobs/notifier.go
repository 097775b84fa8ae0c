package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sitestack-erp/sitestack-erp/internal/users"
)

// UserDirectory resolves notification recipients.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (users.User, error)
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DecisionNotifier consumes TaskTypeDecisionNotify tasks. Delivery failures
// are returned so Asynq retries with its own backoff; they never reach the
// decision transaction, which committed long before.
type DecisionNotifier struct {
	Users  UserDirectory
	Mailer Mailer
	Logger *slog.Logger

	caser cases.Caser
}

// NewDecisionNotifier constructs DecisionNotifier.
func NewDecisionNotifier(directory UserDirectory, mailer Mailer, logger *slog.Logger) *DecisionNotifier {
	return &DecisionNotifier{Users: directory, Mailer: mailer, Logger: logger, caser: cases.Title(language.English)}
}

// Handle processes one decision fan-out task.
func (n *DecisionNotifier) Handle(ctx context.Context, t *asynq.Task) error {
	var payload DecisionNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	subject := fmt.Sprintf("%s %s %s", n.moduleTitle(payload.Module), payload.Number, strings.ToLower(payload.Outcome))
	body := fmt.Sprintf("Request %s (%s) was %s.", payload.Number, payload.DocType, strings.ToLower(payload.Outcome))
	if payload.Remarks != "" {
		body += "\nRemarks: " + payload.Remarks
	}

	recipients := append([]int64{payload.RequestedBy}, payload.Watchers...)
	seen := make(map[int64]struct{}, len(recipients))
	var failed int
	for _, id := range recipients {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		user, err := n.Users.GetByID(ctx, id)
		if err != nil {
			n.Logger.Warn("notify recipient lookup", slog.Int64("user_id", id), slog.Any("error", err))
			continue
		}
		if err := n.Mailer.Send(ctx, user.Email, subject, body); err != nil {
			n.Logger.Error("notify delivery", slog.String("to", user.Email), slog.Any("error", err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("jobs: %d of %d deliveries failed", failed, len(seen))
	}
	return nil
}

func (n *DecisionNotifier) moduleTitle(module string) string {
	return n.caser.String(strings.ToLower(module))
}
