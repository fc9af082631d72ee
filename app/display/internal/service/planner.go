package service

import (
	"context"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/iWorld-y/markee/app/display/internal/domain"
	"github.com/iWorld-y/markee/app/display/internal/usecase"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

type RegisterReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type LoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginReply struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type CreatePlanReq struct {
	Profile dm.CompanyProfile `json:"profile"`
}

type PlanReply struct {
	Id         string            `json:"id"`
	Profile    dm.CompanyProfile `json:"profile"`
	Plan       *dm.MarketingPlan `json:"plan"`
	Transcript []dm.ChatMessage  `json:"transcript"`
	CreatedAt  string            `json:"createdAt"`
}

type ListPlansReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type PlanSummary struct {
	Id          string `json:"id"`
	CompanyName string `json:"companyName"`
	CreatedAt   string `json:"createdAt"`
}

type ListPlansReply struct {
	Plans []*PlanSummary `json:"plans"`
	Total int            `json:"total"`
}

type PlanIdReq struct {
	Id string `json:"id"`
}

type DeletePlanReply struct{}

type SendMessageReq struct {
	Id   string `json:"id"`
	Text string `json:"text"`
}

type SendMessageReply struct {
	Reply      dm.ChatMessage   `json:"reply"`
	Failed     bool             `json:"failed"`
	Transcript []dm.ChatMessage `json:"transcript"`
}

type ExportPlanReq struct {
	Id     string `json:"id"`
	Format string `json:"format"`
}

// PlannerService 营销方案 HTTP 服务
type PlannerService struct {
	ucUser *usecase.UserUseCase
	ucPlan *usecase.PlanUseCase
	log    *log.Helper
}

func NewPlannerService(ucUser *usecase.UserUseCase, ucPlan *usecase.PlanUseCase, logger log.Logger) *PlannerService {
	return &PlannerService{
		ucUser: ucUser,
		ucPlan: ucPlan,
		log:    log.NewHelper(logger),
	}
}

func (s *PlannerService) Register(ctx context.Context, req *RegisterReq) (*RegisterReply, error) {
	if err := s.ucUser.Register(ctx, req.Username, req.Password); err != nil {
		return nil, err
	}
	return &RegisterReply{Success: true, Message: "success"}, nil
}

func (s *PlannerService) Login(ctx context.Context, req *LoginReq) (*LoginReply, error) {
	token, err := s.ucUser.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return &LoginReply{Token: token, Username: req.Username}, nil
}

func (s *PlannerService) CreatePlan(ctx context.Context, req *CreatePlanReq) (*PlanReply, error) {
	username, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	detail, err := s.ucPlan.Create(ctx, username, req.Profile)
	if err != nil {
		return nil, err
	}
	return toPlanReply(detail), nil
}

func (s *PlannerService) ListPlans(ctx context.Context, req *ListPlansReq) (*ListPlansReply, error) {
	username, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	plans, total, err := s.ucPlan.List(ctx, username, page, pageSize)
	if err != nil {
		return nil, err
	}
	list := make([]*PlanSummary, 0, len(plans))
	for _, p := range plans {
		list = append(list, &PlanSummary{
			Id:          strconv.FormatInt(p.ID, 10),
			CompanyName: p.CompanyName,
			CreatedAt:   formatTime(p.CreatedAt),
		})
	}
	return &ListPlansReply{Plans: list, Total: total}, nil
}

func (s *PlannerService) GetPlan(ctx context.Context, req *PlanIdReq) (*PlanReply, error) {
	username, id, err := planRef(ctx, req.Id)
	if err != nil {
		return nil, err
	}
	detail, err := s.ucPlan.Get(ctx, username, id)
	if err != nil {
		return nil, err
	}
	return toPlanReply(detail), nil
}

func (s *PlannerService) DeletePlan(ctx context.Context, req *PlanIdReq) (*DeletePlanReply, error) {
	username, id, err := planRef(ctx, req.Id)
	if err != nil {
		return nil, err
	}
	if err := s.ucPlan.Delete(ctx, username, id); err != nil {
		return nil, err
	}
	return &DeletePlanReply{}, nil
}

func (s *PlannerService) SendMessage(ctx context.Context, req *SendMessageReq) (*SendMessageReply, error) {
	username, id, err := planRef(ctx, req.Id)
	if err != nil {
		return nil, err
	}
	reply, err := s.ucPlan.Chat(ctx, username, id, req.Text)
	if err != nil {
		return nil, err
	}
	return &SendMessageReply{
		Reply:      reply.Reply,
		Failed:     reply.Failed,
		Transcript: reply.Transcript,
	}, nil
}

func (s *PlannerService) ExportPlan(ctx context.Context, req *ExportPlanReq) (*domain.Export, error) {
	username, id, err := planRef(ctx, req.Id)
	if err != nil {
		return nil, err
	}
	return s.ucPlan.Export(ctx, username, id, req.Format)
}

// currentUser 从 JWT claims 中取出用户名
func currentUser(ctx context.Context) (string, error) {
	claims, ok := jwt.FromContext(ctx)
	if !ok {
		return "", errors.Unauthorized("UNAUTHORIZED", "missing token")
	}
	mc, ok := claims.(jwtv5.MapClaims)
	if !ok {
		return "", errors.Unauthorized("UNAUTHORIZED", "unexpected token claims")
	}
	username, _ := mc["username"].(string)
	if username == "" {
		return "", errors.Unauthorized("UNAUTHORIZED", "token has no username")
	}
	return username, nil
}

func planRef(ctx context.Context, rawID string) (string, int64, error) {
	username, err := currentUser(ctx)
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, errors.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	return username, id, nil
}

func toPlanReply(d *domain.PlanDetail) *PlanReply {
	return &PlanReply{
		Id:         strconv.FormatInt(d.ID, 10),
		Profile:    d.Profile,
		Plan:       d.Plan.Plan,
		Transcript: d.Transcript,
		CreatedAt:  formatTime(d.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
