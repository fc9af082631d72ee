package domain

import (
	"time"

	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

// Plan 已保存的营销方案
type Plan struct {
	ID        int64
	Username  string
	Profile   dm.CompanyProfile
	Plan      *dm.MarketingPlan
	CreatedAt time.Time
}

// PlanSummary 方案摘要信息
type PlanSummary struct {
	ID          int64
	CompanyName string
	CreatedAt   time.Time
}

// PlanDetail 方案详情，附带当前对话记录
type PlanDetail struct {
	*Plan
	Transcript []dm.ChatMessage
}

// ChatReply 一轮对话的结果
type ChatReply struct {
	Reply      dm.ChatMessage
	Failed     bool
	Transcript []dm.ChatMessage
}

// Export 导出文件
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

// User 用户实体
type User struct {
	ID           int
	Username     string
	PasswordHash string
}
