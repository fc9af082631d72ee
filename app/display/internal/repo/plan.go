package repo

import (
	"context"

	dm "github.com/iWorld-y/markee/app/planner/pkg/model"

	"github.com/iWorld-y/markee/app/display/internal/domain"
)

// PlanRepo 方案仓库接口
type PlanRepo interface {
	// SavePlan 保存方案及初始对话记录
	SavePlan(ctx context.Context, username string, profile dm.CompanyProfile, plan *dm.MarketingPlan, transcript []dm.ChatMessage) (*domain.Plan, error)
	// GetPlan 获取用户的方案，不存在时返回 NotFound
	GetPlan(ctx context.Context, id int64, username string) (*domain.Plan, error)
	// ListPlans 分页获取用户的方案摘要
	ListPlans(ctx context.Context, username string, page, pageSize int) ([]*domain.PlanSummary, int, error)
	// DeletePlan 删除方案及对话记录
	DeletePlan(ctx context.Context, id int64, username string) error
	// AppendMessages 在已有对话记录之后追加，序号由存储层分配
	AppendMessages(ctx context.Context, id int64, msgs []dm.ChatMessage) error
	// ListMessages 读取完整对话记录
	ListMessages(ctx context.Context, id int64) ([]dm.ChatMessage, error)
}

// UserRepo 用户仓库接口
type UserRepo interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}
