package usecase

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/markee/app/display/internal/domain"
	"github.com/iWorld-y/markee/app/display/internal/repo"
	"github.com/iWorld-y/markee/app/planner/pkg/chat"
	"github.com/iWorld-y/markee/app/planner/pkg/engine"
	"github.com/iWorld-y/markee/app/planner/pkg/export"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

// PlanGenerator 方案生成器
type PlanGenerator interface {
	Generate(ctx context.Context, profile dm.CompanyProfile) (*dm.MarketingPlan, error)
}

// PlanUseCase 方案与对话业务逻辑。会话以方案 ID 为键，进程重启后按需从对话记录恢复。
type PlanUseCase struct {
	repo      repo.PlanRepo
	generator PlanGenerator
	chats     *chat.Manager
	log       *log.Helper
	now       func() time.Time

	restoreMu sync.Mutex

	// unsaved 落库失败的对话轮次，下一次写入时按顺序补写
	unsavedMu sync.Mutex
	unsaved   map[int64][]dm.ChatMessage
}

// NewPlanUseCase 创建方案业务逻辑实例
func NewPlanUseCase(repo repo.PlanRepo, generator PlanGenerator, chats *chat.Manager, logger log.Logger) *PlanUseCase {
	return &PlanUseCase{
		repo:      repo,
		generator: generator,
		chats:     chats,
		log:       log.NewHelper(logger),
		now:       time.Now,
		unsaved:   make(map[int64][]dm.ChatMessage),
	}
}

func sessionKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Create 生成方案并打开对话会话
func (uc *PlanUseCase) Create(ctx context.Context, username string, profile dm.CompanyProfile) (*domain.PlanDetail, error) {
	profile = profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nil, kerrors.BadRequest("INVALID_PROFILE", err.Error())
	}

	plan, err := uc.generator.Generate(ctx, profile)
	if err != nil {
		var genErr *engine.GenerationError
		if errors.As(err, &genErr) {
			return nil, kerrors.New(502, "GENERATION_FAILED", engine.GenerationFailedMessage)
		}
		return nil, err
	}

	greeting := []dm.ChatMessage{{Role: dm.RoleModel, Text: chat.Greeting}}
	saved, err := uc.repo.SavePlan(ctx, username, profile, plan, greeting)
	if err != nil {
		return nil, err
	}
	session, err := uc.chats.OpenWithID(sessionKey(saved.ID), profile, plan)
	if err != nil {
		return nil, err
	}
	uc.log.WithContext(ctx).Infof("plan %d created for %s", saved.ID, username)
	return &domain.PlanDetail{Plan: saved, Transcript: session.Transcript()}, nil
}

// List 分页列出方案摘要
func (uc *PlanUseCase) List(ctx context.Context, username string, page, pageSize int) ([]*domain.PlanSummary, int, error) {
	return uc.repo.ListPlans(ctx, username, page, pageSize)
}

// Get 获取方案详情与当前对话记录
func (uc *PlanUseCase) Get(ctx context.Context, username string, id int64) (*domain.PlanDetail, error) {
	plan, err := uc.repo.GetPlan(ctx, id, username)
	if err != nil {
		return nil, err
	}
	session, err := uc.session(ctx, plan)
	if err != nil {
		return nil, err
	}
	return &domain.PlanDetail{Plan: plan, Transcript: session.Transcript()}, nil
}

// Delete 丢弃方案、会话和对话记录。与会话恢复互斥，避免删除途中按半截记录恢复
func (uc *PlanUseCase) Delete(ctx context.Context, username string, id int64) error {
	uc.restoreMu.Lock()
	defer uc.restoreMu.Unlock()
	if err := uc.repo.DeletePlan(ctx, id, username); err != nil {
		return err
	}
	uc.chats.Close(sessionKey(id))

	uc.unsavedMu.Lock()
	delete(uc.unsaved, id)
	uc.unsavedMu.Unlock()
	return nil
}

// Chat 在方案的会话中发送一条消息。模型失败时返回兜底回复并标记 Failed
func (uc *PlanUseCase) Chat(ctx context.Context, username string, id int64, text string) (*domain.ChatReply, error) {
	plan, err := uc.repo.GetPlan(ctx, id, username)
	if err != nil {
		return nil, err
	}
	session, err := uc.session(ctx, plan)
	if err != nil {
		return nil, err
	}

	turn, err := session.Exchange(ctx, text)
	var chatErr *chat.ChatError
	switch {
	case errors.Is(err, chat.ErrSessionBusy):
		return nil, kerrors.Conflict("SESSION_BUSY", "a reply is still pending for this plan")
	case errors.Is(err, chat.ErrEmptyMessage):
		return nil, kerrors.BadRequest("EMPTY_MESSAGE", "message is empty")
	case err != nil && !errors.As(err, &chatErr):
		return nil, err
	}

	uc.persist(ctx, id, turn.User, turn.Reply)
	return &domain.ChatReply{
		Reply:      turn.Reply,
		Failed:     chatErr != nil,
		Transcript: session.Transcript(),
	}, nil
}

// Export 导出方案，format 为 txt 或 html
func (uc *PlanUseCase) Export(ctx context.Context, username string, id int64, format string) (*domain.Export, error) {
	plan, err := uc.repo.GetPlan(ctx, id, username)
	if err != nil {
		return nil, err
	}

	switch format {
	case "", "txt":
		return &domain.Export{
			FileName:    export.FileName(plan.Profile, "txt"),
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(export.Text(plan.Profile, plan.Plan)),
		}, nil
	case "html":
		var buf bytes.Buffer
		if err := export.HTML(&buf, plan.Profile, plan.Plan, uc.now()); err != nil {
			return nil, err
		}
		return &domain.Export{
			FileName:    export.FileName(plan.Profile, "html"),
			ContentType: "text/html; charset=utf-8",
			Body:        buf.Bytes(),
		}, nil
	default:
		return nil, kerrors.BadRequest("UNSUPPORTED_FORMAT", "format must be txt or html")
	}
}

// persist 写入一轮对话，连同此前写入失败的轮次一起补写
func (uc *PlanUseCase) persist(ctx context.Context, id int64, msgs ...dm.ChatMessage) {
	uc.unsavedMu.Lock()
	defer uc.unsavedMu.Unlock()

	batch := append(uc.unsaved[id], msgs...)
	err := uc.repo.AppendMessages(ctx, id, batch)
	switch {
	case err == nil:
		delete(uc.unsaved, id)
	case kerrors.IsNotFound(err):
		// 方案已删除，不再补写
		delete(uc.unsaved, id)
	default:
		uc.unsaved[id] = batch
		uc.log.WithContext(ctx).Errorf("persist chat turn of plan %d (%d messages pending): %v", id, len(batch), err)
	}
}

// session 获取方案对应的会话，不在内存中时从对话记录恢复
func (uc *PlanUseCase) session(ctx context.Context, plan *domain.Plan) (*chat.Session, error) {
	key := sessionKey(plan.ID)
	uc.restoreMu.Lock()
	defer uc.restoreMu.Unlock()
	if s, err := uc.chats.Get(key); err == nil {
		return s, nil
	}

	transcript, err := uc.repo.ListMessages(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	// 方案已读到但记录为空：方案刚被删除
	if len(transcript) == 0 {
		return nil, kerrors.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	s, err := uc.chats.Restore(key, plan.Profile, plan.Plan, transcript)
	if errors.Is(err, chat.ErrCorruptTranscript) {
		uc.log.WithContext(ctx).Errorf("restore session of plan %d: %v", plan.ID, err)
		return nil, kerrors.InternalServer("CORRUPT_TRANSCRIPT", "chat history of this plan cannot be restored")
	}
	return s, err
}
