package server

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/markee/app/display/internal/conf"
	"github.com/iWorld-y/markee/app/planner/pkg/chat"
	"github.com/iWorld-y/markee/app/planner/pkg/config"
	"github.com/iWorld-y/markee/app/planner/pkg/engine"
	plannerLogger "github.com/iWorld-y/markee/app/planner/pkg/logger"
)

// NewPlannerConfig 将 conf.Planner 转换为 planner 的 config.Config
func NewPlannerConfig(c *conf.Planner) (*config.Config, error) {
	cfg := &config.Config{}
	if c != nil {
		if c.Llm != nil {
			cfg.LLM = config.LLMConfig{
				BaseURL: c.Llm.BaseUrl,
				APIKey:  c.Llm.ApiKey,
				Model:   c.Llm.Model,
				Timeout: c.Llm.Timeout,
			}
		}
		if c.Log != nil {
			cfg.Log = config.LogConfig{Level: c.Log.Level, File: c.Log.File}
		}
		if c.Concurrency != nil {
			cfg.Concurrency = config.ConcurrencyConfig{
				QPS: int(c.Concurrency.Qps),
				RPM: int(c.Concurrency.Rpm),
			}
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewPlannerEngine 初始化方案生成引擎
func NewPlannerEngine(cfg *config.Config, logger log.Logger) (*engine.Engine, func(), error) {
	helper := log.NewHelper(logger)

	// 初始化日志
	if err := plannerLogger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		helper.Errorf("Failed to init planner logger: %v", err)
		_ = plannerLogger.InitLogger("info", "") // 降级处理
	}

	eng, err := engine.NewEngine(context.Background(), cfg)
	if err != nil {
		helper.Errorf("Failed to init engine: %v", err)
		return nil, nil, err
	}

	cleanup := func() {
		helper.Info("Cleaning up planner engine")
	}
	return eng, cleanup, nil
}

// NewChatManager 会话管理器，模型回复由引擎提供
func NewChatManager(eng *engine.Engine) *chat.Manager {
	return chat.NewManager(eng)
}
