package chat

import (
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/iWorld-y/markee/app/planner/pkg/logger"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

// Manager 管理进程内的全部对话会话
type Manager struct {
	replier Replier

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager 创建会话管理器
func NewManager(replier Replier) *Manager {
	return &Manager{
		replier:  replier,
		sessions: make(map[string]*Session),
	}
}

// Open 以随机 ID 打开新会话
func (m *Manager) Open(profile dm.CompanyProfile, plan *dm.MarketingPlan) (*Session, error) {
	return m.OpenWithID(uuid.NewString(), profile, plan)
}

// OpenWithID 以指定 ID 打开新会话，同 ID 的旧会话被替换
func (m *Manager) OpenWithID(id string, profile dm.CompanyProfile, plan *dm.MarketingPlan) (*Session, error) {
	s, err := newSession(id, profile, plan, m.replier)
	if err != nil {
		return nil, err
	}
	m.put(s)
	logger.Log.Infof("对话会话已建立 [%s] 公司: %s", id, profile.Name)
	return s, nil
}

// Restore 根据已持久化的对话记录重建会话。
// 成功的问答轮次重新进入模型历史，失败轮次只保留在记录中；
// 未完成的 pending 回复按失败处理。
func (m *Manager) Restore(id string, profile dm.CompanyProfile, plan *dm.MarketingPlan, transcript []dm.ChatMessage) (*Session, error) {
	if len(transcript) == 0 || len(transcript)%2 == 0 {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrCorruptTranscript, len(transcript))
	}
	if transcript[0].Role != dm.RoleModel || transcript[0].Text != Greeting {
		return nil, fmt.Errorf("%w: missing greeting", ErrCorruptTranscript)
	}

	s, err := newSession(id, profile, plan, m.replier)
	if err != nil {
		return nil, err
	}

	for i := 1; i < len(transcript); i += 2 {
		user, reply := transcript[i], transcript[i+1]
		if user.Role != dm.RoleUser || reply.Role != dm.RoleModel {
			return nil, fmt.Errorf("%w: roles out of order at %d", ErrCorruptTranscript, i)
		}
		if reply.Pending {
			reply = dm.ChatMessage{Role: dm.RoleModel, Text: FallbackReply, Failed: true}
		}
		s.transcript = append(s.transcript, user, reply)
		if !reply.Failed {
			s.history = append(s.history,
				schema.UserMessage(user.Text),
				schema.AssistantMessage(reply.Text, nil),
			)
		}
	}

	m.put(s)
	logger.Log.Infof("对话会话已恢复 [%s]，共 %d 条记录", id, len(s.transcript))
	return s, nil
}

func (m *Manager) put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.id] = s
}

// Get 获取会话
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close 关闭会话，会话不存在时忽略
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len 当前会话数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
