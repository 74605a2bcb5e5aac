package usecase

import (
	"context"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/model"
	"github.com/7HR4IZ3/checkaroundme-sub001/internal/domain/ports/adapter"
)

// PlanUseCase is a pure read-through to the provider's plan catalog.
type PlanUseCase struct {
	provider adapter.PaymentProvider
}

// NewPlanUseCase constructs a PlanUseCase.
func NewPlanUseCase(provider adapter.PaymentProvider) *PlanUseCase {
	return &PlanUseCase{provider: provider}
}

// List returns all provider plans.
func (uc *PlanUseCase) List(ctx context.Context) ([]*model.Plan, error) {
	return uc.provider.ListPlans(ctx)
}

// Get retrieves a plan by its provider code.
func (uc *PlanUseCase) Get(ctx context.Context, code string) (*model.Plan, error) {
	return uc.provider.GetPlan(ctx, code)
}
