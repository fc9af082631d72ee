package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/markee/app/display/internal/domain"
	"github.com/iWorld-y/markee/app/display/internal/repo"
	"github.com/iWorld-y/markee/app/planner/pkg/chat"
	"github.com/iWorld-y/markee/app/planner/pkg/engine"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

// mockPlanRepo 内存实现的方案仓库
type mockPlanRepo struct {
	mu       sync.Mutex
	nextID   int64
	plans    map[int64]*domain.Plan
	messages map[int64][]dm.ChatMessage
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{plans: map[int64]*domain.Plan{}, messages: map[int64][]dm.ChatMessage{}}
}

func (m *mockPlanRepo) SavePlan(_ context.Context, username string, profile dm.CompanyProfile, plan *dm.MarketingPlan, transcript []dm.ChatMessage) (*domain.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p := &domain.Plan{ID: m.nextID, Username: username, Profile: profile, Plan: plan, CreatedAt: time.Now()}
	m.plans[p.ID] = p
	m.messages[p.ID] = append([]dm.ChatMessage(nil), transcript...)
	return p, nil
}

func (m *mockPlanRepo) GetPlan(_ context.Context, id int64, username string) (*domain.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.Username != username {
		return nil, kerrors.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	return p, nil
}

func (m *mockPlanRepo) ListPlans(_ context.Context, username string, _, _ int) ([]*domain.PlanSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*domain.PlanSummary
	for _, p := range m.plans {
		if p.Username == username {
			list = append(list, &domain.PlanSummary{ID: p.ID, CompanyName: p.Profile.Name})
		}
	}
	return list, len(list), nil
}

func (m *mockPlanRepo) DeletePlan(_ context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plans[id]; !ok || p.Username != username {
		return kerrors.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	delete(m.plans, id)
	delete(m.messages, id)
	return nil
}

func (m *mockPlanRepo) AppendMessages(_ context.Context, id int64, msgs []dm.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return kerrors.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	m.messages[id] = append(m.messages[id], msgs...)
	return nil
}

// flakyPlanRepo 前 failAppends 次追加对话记录失败
type flakyPlanRepo struct {
	*mockPlanRepo
	failAppends int
}

func (f *flakyPlanRepo) AppendMessages(ctx context.Context, id int64, msgs []dm.ChatMessage) error {
	if f.failAppends > 0 {
		f.failAppends--
		return errors.New("connection refused")
	}
	return f.mockPlanRepo.AppendMessages(ctx, id, msgs)
}

// droppedTranscriptRepo 模拟方案行已读到、对话记录却已被并发删除
type droppedTranscriptRepo struct {
	*mockPlanRepo
}

func (d droppedTranscriptRepo) ListMessages(context.Context, int64) ([]dm.ChatMessage, error) {
	return nil, nil
}

func (m *mockPlanRepo) ListMessages(_ context.Context, id int64) ([]dm.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dm.ChatMessage(nil), m.messages[id]...), nil
}

type generatorFunc func(ctx context.Context, profile dm.CompanyProfile) (*dm.MarketingPlan, error)

func (f generatorFunc) Generate(ctx context.Context, profile dm.CompanyProfile) (*dm.MarketingPlan, error) {
	return f(ctx, profile)
}

func samplePlan() *dm.MarketingPlan {
	return &dm.MarketingPlan{
		OverallStrategy: dm.OverallStrategy{Title: "Orbit", Summary: "s", KeyPillars: []string{"a", "b", "c"}},
		TargetAudience:  dm.TargetAudience{Personas: []dm.Persona{{Name: "n", Description: "d"}}, Channels: []string{"Email"}},
		ContentPlan:     dm.ContentPlan{Themes: []string{"t"}, Ideas: []dm.ContentIdea{{Format: "Blog Post", Title: "x", Description: "y"}}},
		CampaignIdeas:   []dm.Campaign{{Name: "c", Description: "d", Objective: "o", KPIs: []string{"k"}}},
	}
}

func sampleProfile() dm.CompanyProfile {
	return dm.CompanyProfile{Name: "Acme Widgets", Description: "d", TargetAudience: "t", Products: "p", Goals: "g"}
}

func staticReply(text string, err error) chat.Replier {
	return chat.ReplierFunc(func(context.Context, []*schema.Message) (string, error) {
		return text, err
	})
}

func newTestUseCase(repo repo.PlanRepo, replier chat.Replier) *PlanUseCase {
	gen := generatorFunc(func(context.Context, dm.CompanyProfile) (*dm.MarketingPlan, error) {
		return samplePlan(), nil
	})
	return NewPlanUseCase(repo, gen, chat.NewManager(replier), log.DefaultLogger)
}

func TestPlanUseCase_Create(t *testing.T) {
	repo := newMockPlanRepo()
	uc := newTestUseCase(repo, staticReply("ok", nil))

	profile := sampleProfile()
	profile.Name = "  Acme Widgets  "
	detail, err := uc.Create(context.Background(), "alice", profile)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ID)
	assert.Equal(t, "Acme Widgets", detail.Profile.Name)
	assert.Equal(t, []dm.ChatMessage{{Role: dm.RoleModel, Text: chat.Greeting}}, detail.Transcript)
	assert.Equal(t, detail.Transcript, repo.messages[1])
}

func TestPlanUseCase_CreateErrors(t *testing.T) {
	repo := newMockPlanRepo()
	uc := newTestUseCase(repo, staticReply("ok", nil))

	profile := sampleProfile()
	profile.Goals = ""
	_, err := uc.Create(context.Background(), "alice", profile)
	assert.Equal(t, 400, kerrors.Code(err))
	assert.Equal(t, "INVALID_PROFILE", kerrors.Reason(err))

	uc.generator = generatorFunc(func(context.Context, dm.CompanyProfile) (*dm.MarketingPlan, error) {
		return nil, &engine.GenerationError{Cause: errors.New("quota exceeded for key sk-123")}
	})
	_, err = uc.Create(context.Background(), "alice", sampleProfile())
	assert.Equal(t, 502, kerrors.Code(err))
	assert.Equal(t, "GENERATION_FAILED", kerrors.Reason(err))
	assert.Equal(t, engine.GenerationFailedMessage, kerrors.FromError(err).Message)
	assert.Empty(t, repo.plans, "no partial plan is stored")
}

func TestPlanUseCase_Chat(t *testing.T) {
	repo := newMockPlanRepo()
	uc := newTestUseCase(repo, staticReply("Try a referral program.", nil))
	ctx := context.Background()

	detail, err := uc.Create(ctx, "alice", sampleProfile())
	require.NoError(t, err)

	reply, err := uc.Chat(ctx, "alice", detail.ID, "more campaigns please")
	require.NoError(t, err)
	assert.False(t, reply.Failed)
	assert.Equal(t, "Try a referral program.", reply.Reply.Text)
	assert.Len(t, reply.Transcript, 3)
	assert.Equal(t, reply.Transcript, repo.messages[detail.ID])

	_, err = uc.Chat(ctx, "bob", detail.ID, "hi")
	assert.True(t, kerrors.IsNotFound(err))

	_, err = uc.Chat(ctx, "alice", detail.ID, "   ")
	assert.Equal(t, 400, kerrors.Code(err))
}

func TestPlanUseCase_ChatFailure(t *testing.T) {
	repo := newMockPlanRepo()
	uc := newTestUseCase(repo, staticReply("", errors.New("upstream 500")))
	ctx := context.Background()

	detail, err := uc.Create(ctx, "alice", sampleProfile())
	require.NoError(t, err)

	reply, err := uc.Chat(ctx, "alice", detail.ID, "hello")
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, chat.FallbackReply, reply.Reply.Text)
	assert.True(t, repo.messages[detail.ID][2].Failed)
}

func TestPlanUseCase_ChatBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	replier := chat.ReplierFunc(func(context.Context, []*schema.Message) (string, error) {
		close(entered)
		<-release
		return "done", nil
	})
	repo := newMockPlanRepo()
	uc := newTestUseCase(repo, replier)
	ctx := context.Background()

	detail, err := uc.Create(ctx, "alice", sampleProfile())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := uc.Chat(ctx, "alice", detail.ID, "first")
		done <- err
	}()
	<-entered

	_, err = uc.Chat(ctx, "alice", detail.ID, "second")
	assert.Equal(t, 409, kerrors.Code(err))

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, repo.messages[detail.ID], 3)
}

func TestPlanUseCase_RestoreAfterRestart(t *testing.T) {
	repo := newMockPlanRepo()
	ctx := context.Background()

	first := newTestUseCase(repo, staticReply("first reply", nil))
	detail, err := first.Create(ctx, "alice", sampleProfile())
	require.NoError(t, err)
	_, err = first.Chat(ctx, "alice", detail.ID, "one")
	require.NoError(t, err)

	// 新实例模拟进程重启，会话从对话记录恢复
	second := newTestUseCase(repo, staticReply("second reply", nil))
	got, err := second.Get(ctx, "alice", detail.ID)
	require.NoError(t, err)
	assert.Len(t, got.Transcript, 3)

	reply, err := second.Chat(ctx, "alice", detail.ID, "two")
	require.NoError(t, err)
	assert.Len(t, reply.Transcript, 5)
	assert.Len(t, repo.messages[detail.ID], 5)
}

func TestPlanUseCase_ChatRetriesUnsavedTurns(t *testing.T) {
	mock := newMockPlanRepo()
	flaky := &flakyPlanRepo{mockPlanRepo: mock, failAppends: 1}
	ctx := context.Background()

	first := newTestUseCase(flaky, staticReply("noted", nil))
	detail, err := first.Create(ctx, "alice", sampleProfile())
	require.NoError(t, err)

	_, err = first.Chat(ctx, "alice", detail.ID, "one")
	require.NoError(t, err, "a storage failure must not fail the chat")
	assert.Len(t, mock.messages[detail.ID], 1)

	_, err = first.Chat(ctx, "alice", detail.ID, "two")
	require.NoError(t, err)
	assert.Empty(t, first.unsaved)

	// 重启后两轮对话都在，顺序与内存会话一致
	second := newTestUseCase(mock, staticReply("ok", nil))
	got, err := second.Get(ctx, "alice", detail.ID)
	require.NoError(t, err)
	require.Len(t, got.Transcript, 5)
	assert.Equal(t, "one", got.Transcript[1].Text)
	assert.Equal(t, "two", got.Transcript[3].Text)
	assert.Equal(t, dm.RoleModel, got.Transcript[4].Role)

	reply, err := second.Chat(ctx, "alice", detail.ID, "three")
	require.NoError(t, err)
	assert.Len(t, reply.Transcript, 7)
	assert.Len(t, mock.messages[detail.ID], 7)
}

func TestPlanUseCase_GetDuringDelete(t *testing.T) {
	mock := newMockPlanRepo()
	ctx := context.Background()

	creator := newTestUseCase(mock, staticReply("ok", nil))
	detail, err := creator.Create(ctx, "alice", sampleProfile())
	require.NoError(t, err)

	// 另一个实例读到方案时，对话记录已被删除
	uc := newTestUseCase(droppedTranscriptRepo{mock}, staticReply("ok", nil))
	_, err = uc.Get(ctx, "alice", detail.ID)
	assert.True(t, kerrors.IsNotFound(err))
	_, err = uc.Chat(ctx, "alice", detail.ID, "hello")
	assert.True(t, kerrors.IsNotFound(err))
	assert.Zero(t, uc.chats.Len())
}

func TestPlanUseCase_DeleteConcurrentWithChat(t *testing.T) {
	mock := newMockPlanRepo()
	ctx := context.Background()

	creator := newTestUseCase(mock, staticReply("ok", nil))
	detail, err := creator.Create(ctx, "alice", sampleProfile())
	require.NoError(t, err)

	// 会话未在内存中，Chat 需要先恢复；与 Delete 并发时只允许 404，不得出现 500
	uc := newTestUseCase(mock, staticReply("ok", nil))
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- uc.Delete(ctx, "alice", detail.ID)
	}()
	go func() {
		defer wg.Done()
		_, err := uc.Chat(ctx, "alice", detail.ID, "hello")
		errs <- err
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			assert.True(t, kerrors.IsNotFound(err), "unexpected error: %v", err)
		}
	}
	_, err = uc.chats.Get(sessionKey(detail.ID))
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestPlanUseCase_Delete(t *testing.T) {
	repo := newMockPlanRepo()
	uc := newTestUseCase(repo, staticReply("ok", nil))
	ctx := context.Background()

	detail, err := uc.Create(ctx, "alice", sampleProfile())
	require.NoError(t, err)

	require.NoError(t, uc.Delete(ctx, "alice", detail.ID))
	_, err = uc.chats.Get(sessionKey(detail.ID))
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)

	_, err = uc.Get(ctx, "alice", detail.ID)
	assert.True(t, kerrors.IsNotFound(err))
}

func TestPlanUseCase_Export(t *testing.T) {
	repo := newMockPlanRepo()
	uc := newTestUseCase(repo, staticReply("ok", nil))
	uc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC) }
	ctx := context.Background()

	detail, err := uc.Create(ctx, "alice", sampleProfile())
	require.NoError(t, err)

	txt, err := uc.Export(ctx, "alice", detail.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Markee_Plan_for_Acme_Widgets.txt", txt.FileName)
	assert.Contains(t, string(txt.Body), "Marketing Plan for: Acme Widgets\n")

	html, err := uc.Export(ctx, "alice", detail.ID, "html")
	require.NoError(t, err)
	assert.Equal(t, "Markee_Plan_for_Acme_Widgets.html", html.FileName)
	assert.Contains(t, string(html.Body), "2025-01-02 03:04")

	_, err = uc.Export(ctx, "alice", detail.ID, "pdf")
	assert.Equal(t, 400, kerrors.Code(err))
}
