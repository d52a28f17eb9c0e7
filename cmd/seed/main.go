package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/cohort-nurture/internal/config"
	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/infra/database"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
)

type sampleLead struct {
	name, email, phone string
	status             entity.LeadStatus
	opened, clicked    bool
	paid               bool
	emailCount         int
	// days since the last email; the automation picks these up on its next pass
	lastSentDaysAgo int
}

var samples = []sampleLead{
	{"John Doe", "john.doe@example.com", "+1234567890", entity.StatusEmailSent, false, false, false, 1, 3},
	{"Jane Smith", "jane.smith@example.com", "+1234567891", entity.StatusReminder2, true, false, false, 3, 4},
	{"Mike Johnson", "mike.johnson@example.com", "+1234567892", entity.StatusFinalReminder, true, true, false, 4, 4},
	{"Sarah Wilson", "sarah.wilson@example.com", "+1234567893", entity.StatusCompleted, true, true, true, 2, 2},
	{"David Brown", "david.brown@example.com", "+1234567894", entity.StatusReminder1, false, false, false, 2, 4},
}

func buildLeads(now time.Time) ([]*entity.Lead, error) {
	leads := make([]*entity.Lead, 0, len(samples))
	for _, s := range samples {
		lastSent := now.Add(-time.Duration(s.lastSentDaysAgo) * 24 * time.Hour)
		lead, err := entity.NewLead(s.name, s.email, s.phone, lastSent.Add(-time.Hour))
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", s.email, err)
		}
		lead.Status = s.status
		lead.EmailOpened = s.opened
		lead.ClickedLink = s.clicked
		lead.PaymentComplete = s.paid
		lead.EmailCount = s.emailCount
		lead.LastEmailSent = &lastSent
		lead.UpdatedAt = lastSent
		leads = append(leads, lead)
	}
	return leads, nil
}

type seedStore interface {
	Insert(ctx context.Context, lead *entity.Lead) error
	DeleteByEmails(ctx context.Context, emails []string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

func main() {
	clearAll := flag.Bool("clear", false, "delete every lead instead of seeding")
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, true)

	if err := run(cfg, *clearAll); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
}

func run(cfg *config.Config, clearAll bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewDBConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	repo := database.NewLeadRepository(db)
	if clearAll {
		return clearLeads(ctx, repo)
	}
	return seed(ctx, repo, time.Now().UTC())
}

func clearLeads(ctx context.Context, store seedStore) error {
	n, err := store.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("clear leads: %w", err)
	}
	log.Info().Int64("deleted", n).Msg("cleared all leads")
	return nil
}

// seed replaces the sample leads, so running it twice leaves one copy.
func seed(ctx context.Context, store seedStore, now time.Time) error {
	leads, err := buildLeads(now)
	if err != nil {
		return fmt.Errorf("build sample leads: %w", err)
	}

	emails := make([]string, len(leads))
	for i, l := range leads {
		emails[i] = l.Email
	}
	if _, err := store.DeleteByEmails(ctx, emails); err != nil {
		return fmt.Errorf("remove previous sample leads: %w", err)
	}

	for _, l := range leads {
		if err := store.Insert(ctx, l); err != nil {
			return fmt.Errorf("insert sample lead %s: %w", logger.RedactEmail(l.Email), err)
		}
	}
	log.Info().Int("count", len(leads)).Msg("generated sample leads")
	return nil
}
