package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/markee/app/planner/pkg/config"
	"github.com/iWorld-y/markee/app/planner/pkg/logger"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

var errEmptyReply = errors.New("empty reply from model")

// Engine 方案生成与对话的模型调用引擎
type Engine struct {
	planModel model.BaseChatModel // 带 JSON Schema 约束，用于生成方案
	chatModel model.BaseChatModel // 普通对话
	limiter   *rate.Limiter
	timeout   time.Duration
}

// Options 引擎可选参数
type Options struct {
	Limiter *rate.Limiter
	Timeout time.Duration
}

// New 使用已构造好的模型创建引擎
func New(planModel, chatModel model.BaseChatModel, opts Options) *Engine {
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultTimeout
	}
	return &Engine{
		planModel: planModel,
		chatModel: chatModel,
		limiter:   opts.Limiter,
		timeout:   opts.Timeout,
	}
}

// NewEngine 根据配置创建引擎实例
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	timeout, err := cfg.LLM.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	planModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		Timeout:        timeout,
		ResponseFormat: planResponseFormat(),
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	// Limit 设置为 RPM/60，Burst 设置为 QPS
	limit := rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
	limiter := rate.NewLimiter(limit, cfg.Concurrency.QPS)
	logger.Log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", limit, cfg.Concurrency.QPS)

	return New(planModel, chatModel, Options{Limiter: limiter, Timeout: timeout}), nil
}

// Generate 根据公司画像生成营销方案，只尝试一次
func (e *Engine) Generate(ctx context.Context, profile dm.CompanyProfile) (*dm.MarketingPlan, error) {
	profile = profile.Normalize()
	logger.Log.Infof("开始为 [%s] 生成营销方案", profile.Name)

	start := time.Now()
	plan, err := e.generate(ctx, profile)
	generationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		generationsTotal.WithLabelValues("error").Inc()
		logger.Log.Errorf("生成营销方案失败 [%s]: %v", profile.Name, err)
		return nil, &GenerationError{Cause: err}
	}

	generationsTotal.WithLabelValues("success").Inc()
	logger.Log.Infof("营销方案生成完成 [%s]，耗时 %s", profile.Name, time.Since(start).Round(time.Millisecond))
	return plan, nil
}

func (e *Engine) generate(ctx context.Context, profile dm.CompanyProfile) (*dm.MarketingPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	messages := []*schema.Message{
		schema.UserMessage(BuildPrompt(profile)),
	}
	resp, err := e.planModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("llm generate: %w", err)
	}
	logger.Log.Debugf("模型原始输出 [%s]: %s", profile.Name, resp.Content)

	return dm.ParsePlan(resp.Content)
}

// Reply 以完整的对话历史请求模型给出下一轮回复
func (e *Engine) Reply(ctx context.Context, history []*schema.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := e.chatModel.Generate(ctx, history)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}
