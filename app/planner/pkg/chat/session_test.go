package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

func testProfile() dm.CompanyProfile {
	return dm.CompanyProfile{
		Name:           "Stellar Coffee Co.",
		Description:    "Specialty roaster",
		TargetAudience: "Young professionals",
		Products:       "Beans",
		Goals:          "Grow subscriptions",
	}
}

func testPlan() *dm.MarketingPlan {
	return &dm.MarketingPlan{
		OverallStrategy: dm.OverallStrategy{Title: "Orbit", Summary: "s", KeyPillars: []string{"a", "b", "c"}},
		TargetAudience:  dm.TargetAudience{Personas: []dm.Persona{{Name: "n", Description: "d"}}, Channels: []string{"Email"}},
		ContentPlan:     dm.ContentPlan{Themes: []string{"t"}, Ideas: []dm.ContentIdea{{Format: "Blog Post", Title: "x", Description: "y"}}},
		CampaignIdeas:   []dm.Campaign{{Name: "c", Description: "d", Objective: "o", KPIs: []string{"k"}}},
	}
}

// recorder 记录每轮收到的历史，按脚本返回
type recorder struct {
	mu      sync.Mutex
	calls   [][]*schema.Message
	respond func(n int, history []*schema.Message) (string, error)
}

func (r *recorder) Reply(_ context.Context, history []*schema.Message) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, history)
	n := len(r.calls)
	r.mu.Unlock()
	return r.respond(n, history)
}

func echo() *recorder {
	return &recorder{respond: func(n int, _ []*schema.Message) (string, error) {
		return fmt.Sprintf("reply %d", n), nil
	}}
}

func TestManager_OpenSeedsTranscript(t *testing.T) {
	r := echo()
	m := NewManager(r)

	s, err := m.Open(testProfile(), testPlan())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, []dm.ChatMessage{{Role: dm.RoleModel, Text: Greeting}}, s.Transcript())
	assert.Empty(t, r.calls, "greeting must not need a round trip")

	require.Len(t, s.history, 3)
	assert.Equal(t, schema.System, s.history[0].Role)
	assert.Equal(t, SystemInstruction, s.history[0].Content)
	assert.Equal(t, schema.User, s.history[1].Role)
	assert.Contains(t, s.history[1].Content, `"Stellar Coffee Co."`)
	assert.Contains(t, s.history[1].Content, `"keyPillars"`)
	assert.Equal(t, schema.Assistant, s.history[2].Role)
	assert.Equal(t, Greeting, s.history[2].Content)

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestManager_OpenRejectsIncompleteState(t *testing.T) {
	m := NewManager(echo())

	_, err := m.Open(testProfile(), nil)
	assert.ErrorIs(t, err, dm.ErrMalformedPlan)

	profile := testProfile()
	profile.Goals = " "
	_, err = m.Open(profile, testPlan())
	assert.ErrorIs(t, err, dm.ErrInvalidProfile)
	assert.Zero(t, m.Len())
}

func TestSession_SendAppendsInOrder(t *testing.T) {
	r := echo()
	s, err := NewManager(r).Open(testProfile(), testPlan())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		reply, err := s.Send(context.Background(), "make it shorter")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("reply %d", i+1), reply.Text)
	}

	transcript := s.Transcript()
	require.Len(t, transcript, 5)
	wantRoles := []dm.Role{dm.RoleModel, dm.RoleUser, dm.RoleModel, dm.RoleUser, dm.RoleModel}
	for i, msg := range transcript {
		assert.Equal(t, wantRoles[i], msg.Role, "entry %d", i)
		assert.False(t, msg.Pending)
	}
	assert.Equal(t, "make it shorter", transcript[3].Text)
	assert.Equal(t, "reply 2", transcript[4].Text)

	// 第二轮携带第一轮的完整上下文
	require.Len(t, r.calls, 2)
	assert.Len(t, r.calls[0], 4)
	second := r.calls[1]
	require.Len(t, second, 6)
	assert.Equal(t, "reply 1", second[4].Content)
	assert.Equal(t, schema.User, second[5].Role)
}

func TestSession_SendFailureUsesFallback(t *testing.T) {
	boom := errors.New("connection reset by peer")
	r := &recorder{respond: func(n int, _ []*schema.Message) (string, error) {
		if n == 1 {
			return "", boom
		}
		return "recovered", nil
	}}
	s, err := NewManager(r).Open(testProfile(), testPlan())
	require.NoError(t, err)

	reply, err := s.Send(context.Background(), "give me new campaigns")
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, dm.ChatMessage{Role: dm.RoleModel, Text: FallbackReply, Failed: true}, reply)

	transcript := s.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, dm.ChatMessage{Role: dm.RoleUser, Text: "give me new campaigns"}, transcript[1])
	assert.Equal(t, FallbackReply, transcript[2].Text)

	// 会话仍可继续使用，失败轮次不进入模型历史
	reply, err = s.Send(context.Background(), "try again")
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply.Text)
	assert.Len(t, s.Transcript(), 5)
	require.Len(t, r.calls, 2)
	assert.Len(t, r.calls[1], 4)
	assert.Equal(t, "try again", r.calls[1][3].Content)
}

func TestSession_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := &recorder{respond: func(int, []*schema.Message) (string, error) {
		close(entered)
		<-release
		return "done", nil
	}}
	s, err := NewManager(r).Open(testProfile(), testPlan())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.Send(context.Background(), "first")
		assert.NoError(t, err)
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("reply was never requested")
	}

	// 在途期间：用户消息与 pending 占位已写入
	assert.True(t, s.Busy())
	inFlight := s.Transcript()
	require.Len(t, inFlight, 3)
	assert.Equal(t, dm.ChatMessage{Role: dm.RoleUser, Text: "first"}, inFlight[1])
	assert.True(t, inFlight[2].Pending)

	_, err = s.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrSessionBusy)
	assert.Len(t, s.Transcript(), 3)

	close(release)
	wg.Wait()

	assert.False(t, s.Busy())
	final := s.Transcript()
	require.Len(t, final, 3)
	assert.Equal(t, dm.ChatMessage{Role: dm.RoleModel, Text: "done"}, final[2])
}

func TestSession_SendEmpty(t *testing.T) {
	s, err := NewManager(echo()).Open(testProfile(), testPlan())
	require.NoError(t, err)

	_, err = s.Send(context.Background(), "  \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Len(t, s.Transcript(), 1)
}

func TestManager_Restore(t *testing.T) {
	r := echo()
	m := NewManager(r)
	transcript := []dm.ChatMessage{
		{Role: dm.RoleModel, Text: Greeting},
		{Role: dm.RoleUser, Text: "shorter"},
		{Role: dm.RoleModel, Text: "ok, shorter"},
		{Role: dm.RoleUser, Text: "new kpis"},
		{Role: dm.RoleModel, Text: FallbackReply, Failed: true},
		{Role: dm.RoleUser, Text: "crashed mid-flight"},
		{Role: dm.RoleModel, Pending: true},
	}

	s, err := m.Restore("42", testProfile(), testPlan(), transcript)
	require.NoError(t, err)

	restored := s.Transcript()
	require.Len(t, restored, 7)
	assert.Equal(t, FallbackReply, restored[6].Text)
	assert.True(t, restored[6].Failed)
	assert.False(t, restored[6].Pending)

	_, err = s.Send(context.Background(), "continue")
	require.NoError(t, err)
	history := r.calls[0]
	// 3 条种子 + 1 轮成功问答 + 本轮用户消息
	require.Len(t, history, 6)
	assert.Equal(t, "shorter", history[3].Content)
	assert.Equal(t, "ok, shorter", history[4].Content)
	assert.Equal(t, "continue", history[5].Content)

	got, err := m.Get("42")
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestManager_RestoreRejectsCorrupt(t *testing.T) {
	m := NewManager(echo())
	tests := map[string][]dm.ChatMessage{
		"empty":       nil,
		"even length": {{Role: dm.RoleModel, Text: Greeting}, {Role: dm.RoleUser, Text: "x"}},
		"no greeting": {{Role: dm.RoleModel, Text: "hi"}},
		"swapped roles": {
			{Role: dm.RoleModel, Text: Greeting},
			{Role: dm.RoleModel, Text: "x"},
			{Role: dm.RoleUser, Text: "y"},
		},
	}
	for name, transcript := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Restore("1", testProfile(), testPlan(), transcript)
			assert.ErrorIs(t, err, ErrCorruptTranscript)
		})
	}
	assert.Zero(t, m.Len())
}

func TestManager_Close(t *testing.T) {
	m := NewManager(echo())
	s, err := m.OpenWithID("7", testProfile(), testPlan())
	require.NoError(t, err)
	assert.Equal(t, "7", s.ID())
	assert.Equal(t, 1, m.Len())

	m.Close("7")
	m.Close("7")
	_, err = m.Get("7")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReplierFunc(t *testing.T) {
	var f Replier = ReplierFunc(func(context.Context, []*schema.Message) (string, error) {
		return "hi", nil
	})
	text, err := f.Reply(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestSession_ExchangeReportsSeq(t *testing.T) {
	s, err := NewManager(echo()).Open(testProfile(), testPlan())
	require.NoError(t, err)

	first, err := s.Exchange(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, dm.ChatMessage{Role: dm.RoleUser, Text: "one"}, first.User)

	second, err := s.Exchange(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, 3, second.Seq)
	assert.Equal(t, s.Transcript()[3:5], []dm.ChatMessage{second.User, second.Reply})
}
