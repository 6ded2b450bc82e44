package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jsmart/jsmart-inventory/internal/adjustment"
	"github.com/jsmart/jsmart-inventory/internal/rbac"
	"github.com/jsmart/jsmart-inventory/internal/shared"
)

// Mailer sends reviewer notification mail.
type Mailer interface {
	Send(to []string, subject, body string) error
}

// SMTPMailer sends plain-text mail through a relay such as Mailpit.
type SMTPMailer struct {
	Addr string
	From string
}

// Send delivers the message to every recipient in one SMTP session.
func (m *SMTPMailer) Send(to []string, subject, body string) error {
	if m == nil || m.Addr == "" || len(to) == 0 {
		return nil
	}
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(m.Addr, nil, m.From, to, []byte(msg))
}

// ReviewerDirectory resolves who should hear about pending requests.
type ReviewerDirectory interface {
	ReviewerEmails(ctx context.Context) ([]string, error)
}

// PGReviewerDirectory reads reviewer addresses from the RBAC tables.
type PGReviewerDirectory struct {
	Pool *pgxpool.Pool
}

// ReviewerEmails returns every active user holding the review permission.
func (d *PGReviewerDirectory) ReviewerEmails(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `SELECT DISTINCT u.email
FROM users u
JOIN user_roles ur ON ur.user_id = u.id
JOIN role_permissions rp ON rp.role_id = ur.role_id
JOIN permissions p ON p.id = rp.permission_id
WHERE u.is_active AND p.code = $1`, rbac.PermAdjustmentsReview)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// NewAdjustmentSubmittedHandler notifies reviewers about a pending
// adjustment. Delivery failure is retried by Asynq; a malformed payload
// is not.
func NewAdjustmentSubmittedHandler(logger *slog.Logger, mailer Mailer, reviewers ReviewerDirectory) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AdjustmentSubmittedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		recipients, err := reviewers.ReviewerEmails(ctx)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			logger.Warn("no reviewers configured for adjustment notification", slog.String("request_id", payload.RequestID))
			return nil
		}
		subject := fmt.Sprintf("Stock adjustment %s pending review", payload.RequestID)
		body := fmt.Sprintf(
			"A %s adjustment of %d unit(s) on batch %d (product %d) awaits review.\nReason: %s\nSubmitted: %s",
			payload.Type, payload.Quantity, payload.BatchID, payload.ProductID,
			payload.Reason, payload.SubmittedAt.Format(time.RFC3339),
		)
		if err := mailer.Send(recipients, subject, body); err != nil {
			return err
		}
		logger.Info("reviewer notification sent",
			slog.String("request_id", payload.RequestID),
			slog.Int("recipients", len(recipients)))
		return nil
	}
}

// EvidenceSource lists evidence files still referenced by requests.
type EvidenceSource interface {
	EvidenceInUse(ctx context.Context) (map[string]bool, error)
}

// NewEvidencePurgeHandler removes evidence files older than the
// retention window that back no stored request, typically leftovers of
// abandoned forms.
func NewEvidencePurgeHandler(logger *slog.Logger, source EvidenceSource, store *adjustment.EvidenceStore, retention time.Duration) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		keep, err := source.EvidenceInUse(ctx)
		if err != nil {
			return err
		}
		removed, err := store.PurgeOlderThan(retention, keep)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Info("evidence purge complete", slog.Int("removed", removed))
		}
		return nil
	}
}

// NewIdempotencyCleanupHandler trims idempotency keys past their
// useful life so the table stays small.
func NewIdempotencyCleanupHandler(logger *slog.Logger, store *shared.IdempotencyStore, olderThan time.Duration) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := store.Cleanup(ctx, olderThan); err != nil {
			logger.Warn("idempotency cleanup failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}
