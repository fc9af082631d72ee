package data

import (
	"context"
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/markee/app/display/internal/domain"
	"github.com/iWorld-y/markee/app/display/internal/repo"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
	"github.com/iWorld-y/markee/app/planner/pkg/storage"
)

type planRepo struct {
	data *Data
	log  *log.Helper
}

func NewPlanRepo(data *Data, logger log.Logger) repo.PlanRepo {
	return &planRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *planRepo) SavePlan(ctx context.Context, username string, profile dm.CompanyProfile, plan *dm.MarketingPlan, transcript []dm.ChatMessage) (*domain.Plan, error) {
	rec, err := r.data.store.SavePlan(ctx, username, profile, plan, transcript)
	if err != nil {
		return nil, err
	}
	return toPlan(rec), nil
}

func (r *planRepo) GetPlan(ctx context.Context, id int64, username string) (*domain.Plan, error) {
	rec, err := r.data.store.GetPlan(ctx, id, username)
	if err != nil {
		return nil, notFound(err)
	}
	return toPlan(rec), nil
}

func (r *planRepo) ListPlans(ctx context.Context, username string, page, pageSize int) ([]*domain.PlanSummary, int, error) {
	list, total, err := r.data.store.ListPlans(ctx, username, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]*domain.PlanSummary, 0, len(list))
	for _, p := range list {
		summaries = append(summaries, &domain.PlanSummary{
			ID:          p.ID,
			CompanyName: p.CompanyName,
			CreatedAt:   p.CreatedAt,
		})
	}
	return summaries, total, nil
}

func (r *planRepo) DeletePlan(ctx context.Context, id int64, username string) error {
	return notFound(r.data.store.DeletePlan(ctx, id, username))
}

func (r *planRepo) AppendMessages(ctx context.Context, id int64, msgs []dm.ChatMessage) error {
	return notFound(r.data.store.AppendMessages(ctx, id, msgs))
}

func (r *planRepo) ListMessages(ctx context.Context, id int64) ([]dm.ChatMessage, error) {
	return r.data.store.ListMessages(ctx, id)
}

func toPlan(rec *storage.PlanRecord) *domain.Plan {
	return &domain.Plan{
		ID:        rec.ID,
		Username:  rec.Username,
		Profile:   rec.Profile,
		Plan:      rec.Plan,
		CreatedAt: rec.CreatedAt,
	}
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return kerrors.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	return err
}
