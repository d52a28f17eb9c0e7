package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/xavierca1/cohort-nurture/internal/entity"
)

const uniqueViolation = "23505"

const leadColumns = `id, name, email, phone, status, email_opened, clicked_link, payment_complete,
	last_email_sent, email_count, submitted_at, last_interaction, created_at, updated_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		l        entity.Lead
		status   string
		lastSent sql.NullTime
	)
	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Email,
		&l.Phone,
		&status,
		&l.EmailOpened,
		&l.ClickedLink,
		&l.PaymentComplete,
		&lastSent,
		&l.EmailCount,
		&l.SubmittedAt,
		&l.LastInteraction,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Status = entity.LeadStatus(status)
	if lastSent.Valid {
		t := lastSent.Time
		l.LastEmailSent = &t
	}
	return &l, nil
}

func (r *LeadRepository) Insert(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		lead.Email,
		lead.Phone,
		string(lead.Status),
		lead.EmailOpened,
		lead.ClickedLink,
		lead.PaymentComplete,
		lead.LastEmailSent,
		lead.EmailCount,
		lead.SubmittedAt,
		lead.LastInteraction,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return entity.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	// ids are uuids; anything else cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return nil, entity.ErrLeadNotFound
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return lead, nil
}

// FindAll returns every lead, newest first.
func (r *LeadRepository) FindAll(ctx context.Context) ([]entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC`
	return r.queryLeads(ctx, query)
}

// FindCandidates returns the leads the automation may still act on.
func (r *LeadRepository) FindCandidates(ctx context.Context) ([]entity.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE payment_complete = FALSE AND status <> ALL($1::text[])
		ORDER BY created_at ASC
	`
	return r.queryLeads(ctx, query, pq.Array(statusStrings(entity.TerminalStatuses)))
}

func (r *LeadRepository) queryLeads(ctx context.Context, query string, args ...any) ([]entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	leads := []entity.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

// RecordEmailSent counts one delivered email. The status moves from -> next
// only when the row still holds from and is unpaid, so a send never writes
// back a status that another writer has replaced in the meantime.
func (r *LeadRepository) RecordEmailSent(ctx context.Context, id string, from, next entity.LeadStatus, sentAt time.Time) (*entity.Lead, error) {
	query := `
		UPDATE leads SET
			status = CASE
				WHEN status = $2 AND payment_complete = FALSE THEN $3
				ELSE status
			END,
			email_count = email_count + 1,
			last_email_sent = $4,
			updated_at = $4
		WHERE id = $1
		RETURNING ` + leadColumns
	lead, err := scanLead(r.DB.QueryRowContext(ctx, query,
		id,
		string(from),
		string(next),
		sentAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record email sent: %w", err)
	}
	return lead, nil
}

// MarkStopped only applies to a lead still waiting on its final reminder.
// ErrLeadNotFound covers both a missing lead and one that moved on.
func (r *LeadRepository) MarkStopped(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE leads SET status = $2, updated_at = $4
		WHERE id = $1 AND status = $3 AND payment_complete = FALSE
	`
	res, err := r.DB.ExecContext(ctx, query, id, string(entity.StatusStopped), string(entity.StatusFinalReminder), at)
	if err != nil {
		return fmt.Errorf("mark stopped: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark stopped: %w", err)
	}
	if n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

// ApplyInteraction sets the given flags and, when payment is marked, the
// completed status in the same statement.
func (r *LeadRepository) ApplyInteraction(ctx context.Context, id string, update entity.InteractionUpdate, at time.Time) (*entity.Lead, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, entity.ErrLeadNotFound
	}

	query := `
		UPDATE leads SET
			email_opened = COALESCE($2, email_opened),
			clicked_link = COALESCE($3, clicked_link),
			payment_complete = COALESCE($4, payment_complete),
			status = CASE WHEN $4::boolean IS TRUE THEN $6 ELSE status END,
			last_interaction = $5,
			updated_at = $5
		WHERE id = $1
		RETURNING ` + leadColumns
	lead, err := scanLead(r.DB.QueryRowContext(ctx, query,
		id,
		update.EmailOpened,
		update.ClickedLink,
		update.PaymentComplete,
		at,
		string(entity.StatusCompleted),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("apply interaction: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) Stats(ctx context.Context) (*entity.LeadStats, error) {
	stats := &entity.LeadStats{StatusBreakdown: map[entity.LeadStatus]int{}}

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(email_count), 0),
			COALESCE(AVG(email_count), 0)::float8,
			COUNT(*) FILTER (WHERE payment_complete),
			COUNT(*) FILTER (WHERE email_opened),
			COUNT(*) FILTER (WHERE clicked_link)
		FROM leads
	`
	err := r.DB.QueryRowContext(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalEmailsSent,
		&stats.AvgEmailsPerUser,
		&stats.UsersWithPayment,
		&stats.UsersOpenedEmail,
		&stats.UsersClickedLink,
	)
	if err != nil {
		return nil, fmt.Errorf("lead totals: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status breakdown: %w", err)
		}
		stats.StatusBreakdown[entity.LeadStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	return stats, nil
}

// DeleteByEmails removes the given leads. Used by the seeder.
func (r *LeadRepository) DeleteByEmails(ctx context.Context, emails []string) (int64, error) {
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		normalized = append(normalized, entity.NormalizeEmail(e))
	}

	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE lower(email) = ANY($1::text[])`, pq.Array(normalized))
	if err != nil {
		return 0, fmt.Errorf("delete leads: %w", err)
	}
	return res.RowsAffected()
}

func (r *LeadRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, fmt.Errorf("delete leads: %w", err)
	}
	return res.RowsAffected()
}

func statusStrings(statuses []entity.LeadStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
