package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/markee/app/planner/pkg/chat"
	"github.com/iWorld-y/markee/app/planner/pkg/export"
	"github.com/iWorld-y/markee/app/planner/pkg/logger"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

func newGenerateCmd() *cobra.Command {
	var (
		outDir   string
		withHTML bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a marketing plan and export it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			profile, err := readProfile(flagProfile)
			if err != nil {
				return err
			}
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			plan, err := rt.engine.Generate(ctx, profile)
			if err != nil {
				return err
			}

			if rt.store != nil {
				greeting := []dm.ChatMessage{{Role: dm.RoleModel, Text: chat.Greeting}}
				if rec, err := rt.store.SavePlan(ctx, cliUser, profile, plan, greeting); err != nil {
					logger.Log.Errorf("保存方案失败: %v", err)
				} else {
					logger.Log.Infof("方案已保存 [id=%d]", rec.ID)
				}
			}

			fmt.Fprint(cmd.OutOrStdout(), export.Text(profile, plan))
			return writeExports(outDir, profile, plan, withHTML)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().BoolVar(&withHTML, "html", false, "also write an HTML report")
	return cmd
}

// writeExports 将方案写入 txt，按需写入 html
func writeExports(dir string, profile dm.CompanyProfile, plan *dm.MarketingPlan, withHTML bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	txt := filepath.Join(dir, export.FileName(profile, "txt"))
	if err := os.WriteFile(txt, []byte(export.Text(profile, plan)), 0644); err != nil {
		return err
	}
	logger.Log.Infof("✅ 方案已导出: %s", txt)

	if !withHTML {
		return nil
	}
	path := filepath.Join(dir, export.FileName(profile, "html"))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.HTML(f, profile, plan, time.Now()); err != nil {
		return fmt.Errorf("生成 HTML 失败: %w", err)
	}
	logger.Log.Infof("✅ HTML 报告已生成: %s", path)
	return nil
}
