package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/markee/app/planner/pkg/logger"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

const (
	// SystemInstruction 助手人设
	SystemInstruction = "You are an expert marketing assistant named Markee. A marketing plan has been generated for a user. Your role is to help the user refine this plan conversationally. The user will provide feedback and ask for changes, and you should provide updated suggestions. Be concise and helpful."
	// Greeting 会话建立时直接写入记录的固定开场白，不经过模型
	Greeting = "Great! I've reviewed your marketing plan. How can I help you refine it? Feel free to ask for different campaign ideas, content formats, or audience targeting strategies."
	// FallbackReply 模型调用失败时写入记录的固定回复
	FallbackReply = "Sorry, I encountered an error. Please try again."
)

var (
	ErrSessionBusy       = errors.New("chat session is busy")
	ErrSessionNotFound   = errors.New("chat session not found")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrCorruptTranscript = errors.New("corrupt chat transcript")
)

// ChatError 单轮对话失败。失败已被兜底回复吸收，调用方只需据此打标记。
type ChatError struct {
	Cause error
}

func (e *ChatError) Error() string {
	return "chat turn failed"
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

// Replier 根据完整历史生成下一轮回复
type Replier interface {
	Reply(ctx context.Context, history []*schema.Message) (string, error)
}

// ReplierFunc 将普通函数适配为 Replier
type ReplierFunc func(ctx context.Context, history []*schema.Message) (string, error)

func (f ReplierFunc) Reply(ctx context.Context, history []*schema.Message) (string, error) {
	return f(ctx, history)
}

// Session 绑定一份营销方案的对话会话。
// 同一时刻只允许一个 Send 在途。
type Session struct {
	id      string
	profile dm.CompanyProfile
	plan    *dm.MarketingPlan
	replier Replier

	mu         sync.Mutex
	busy       bool
	transcript []dm.ChatMessage
	history    []*schema.Message // 发送给模型的历史，不含失败轮次
}

func newSession(id string, profile dm.CompanyProfile, plan *dm.MarketingPlan, replier Replier) (*Session, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	history, err := seedHistory(profile, plan)
	if err != nil {
		return nil, err
	}
	return &Session{
		id:         id,
		profile:    profile,
		plan:       plan,
		replier:    replier,
		transcript: []dm.ChatMessage{{Role: dm.RoleModel, Text: Greeting}},
		history:    history,
	}, nil
}

// seedHistory 系统指令 + 携带方案的用户轮 + 固定开场白
func seedHistory(profile dm.CompanyProfile, plan *dm.MarketingPlan) ([]*schema.Message, error) {
	raw, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}
	seed := fmt.Sprintf("Here is the initial marketing plan I generated for my company, \"%s\". Please help me refine it. \n\n%s", profile.Name, raw)
	return []*schema.Message{
		schema.SystemMessage(SystemInstruction),
		schema.UserMessage(seed),
		schema.AssistantMessage(Greeting, nil),
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Profile() dm.CompanyProfile { return s.profile }

func (s *Session) Plan() *dm.MarketingPlan { return s.plan }

// Transcript 返回当前对话记录的副本
func (s *Session) Transcript() []dm.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// Busy 是否有请求在途
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Turn 一轮完整的问答，Seq 为用户消息在对话记录中的下标
type Turn struct {
	Seq   int
	User  dm.ChatMessage
	Reply dm.ChatMessage
}

// Send 发送一条用户消息，返回模型回复
func (s *Session) Send(ctx context.Context, text string) (dm.ChatMessage, error) {
	turn, err := s.Exchange(ctx, text)
	return turn.Reply, err
}

// Exchange 执行一轮问答。
// 第一阶段立即写入用户消息和一条 pending 的模型占位；
// 第二阶段用模型回复确认占位，失败时替换为 FallbackReply 并返回 *ChatError。
func (s *Session) Exchange(ctx context.Context, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Turn{}, ErrSessionBusy
	}
	s.busy = true
	user := dm.ChatMessage{Role: dm.RoleUser, Text: text}
	s.transcript = append(s.transcript, user, dm.ChatMessage{Role: dm.RoleModel, Pending: true})
	slot := len(s.transcript) - 1
	history := append(slices.Clone(s.history), schema.UserMessage(text))
	s.mu.Unlock()

	reply, err := s.replier.Reply(ctx, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	turn := Turn{Seq: slot - 1, User: user}

	if err != nil {
		chatTurnsTotal.WithLabelValues("failed").Inc()
		logger.Log.Errorf("对话请求失败 [%s]: %v", s.id, err)
		turn.Reply = dm.ChatMessage{Role: dm.RoleModel, Text: FallbackReply, Failed: true}
		s.transcript[slot] = turn.Reply
		return turn, &ChatError{Cause: err}
	}

	chatTurnsTotal.WithLabelValues("success").Inc()
	turn.Reply = dm.ChatMessage{Role: dm.RoleModel, Text: reply}
	s.transcript[slot] = turn.Reply
	s.history = append(history, schema.AssistantMessage(reply, nil))
	return turn, nil
}
