package usecase

import (
	"context"
	"errors"

	"github.com/xavierca1/cohort-nurture/internal/entity"
)

// LeadQueryUseCase serves the read side of the admin dashboard.
type LeadQueryUseCase struct {
	Repo LeadRepository
}

func NewLeadQueryUseCase(repo LeadRepository) *LeadQueryUseCase {
	return &LeadQueryUseCase{Repo: repo}
}

// List returns every lead, newest first.
func (uc *LeadQueryUseCase) List(ctx context.Context) ([]entity.Lead, error) {
	leads, err := uc.Repo.FindAll(ctx)
	if err != nil {
		return nil, databaseError("failed to list leads", err)
	}
	if leads == nil {
		leads = []entity.Lead{}
	}
	return leads, nil
}

func (uc *LeadQueryUseCase) Get(ctx context.Context, id string) (*entity.Lead, error) {
	lead, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, leadNotFound()
		}
		return nil, databaseError("failed to load lead", err)
	}
	return lead, nil
}

func (uc *LeadQueryUseCase) Stats(ctx context.Context) (*entity.LeadStats, error) {
	stats, err := uc.Repo.Stats(ctx)
	if err != nil {
		return nil, databaseError("failed to compute stats", err)
	}
	return stats, nil
}
