package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/markee/app/planner/pkg/config"
	"github.com/iWorld-y/markee/app/planner/pkg/engine"
	"github.com/iWorld-y/markee/app/planner/pkg/logger"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
	"github.com/iWorld-y/markee/app/planner/pkg/storage"
)

// cliUser 命令行生成的方案在数据库中的归属用户
const cliUser = "local"

var (
	flagConfig  string
	flagProfile string
)

// runtime 命令共享的运行时依赖
type runtime struct {
	cfg    *config.Config
	engine *engine.Engine
	store  *storage.Storage // 未配置数据库时为 nil
}

func (r *runtime) Close() {
	if r.store != nil {
		r.store.Close()
	}
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("无法加载配置文件: %w", err)
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("无法初始化日志: %w", err)
	}

	eng, err := engine.NewEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, engine: eng}

	// 配置了数据库时才启用持久化，连接失败不影响生成
	if cfg.DB.Host != "" {
		store, err := storage.NewStorage(ctx, cfg.DB)
		if err != nil {
			logger.Log.Errorf("无法连接数据库: %v. 将仅输出到文件。", err)
		} else {
			rt.store = store
			logger.Log.Info("已成功连接到数据库")
		}
	} else {
		logger.Log.Info("未配置数据库信息，跳过数据库连接")
	}
	return rt, nil
}

// readProfile 从 yaml 文件读取公司画像
func readProfile(path string) (dm.CompanyProfile, error) {
	var p dm.CompanyProfile
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile: %w", err)
	}
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Markee: generate and refine a marketing plan for your company",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "configs/config.yaml", "config path")
	root.PersistentFlags().StringVar(&flagProfile, "profile", "profile.yaml", "company profile (yaml)")

	root.AddCommand(newGenerateCmd(), newChatCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
