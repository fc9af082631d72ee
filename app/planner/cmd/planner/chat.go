package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/markee/app/planner/pkg/chat"
	"github.com/iWorld-y/markee/app/planner/pkg/export"
	"github.com/iWorld-y/markee/app/planner/pkg/logger"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
	"github.com/iWorld-y/markee/app/planner/pkg/storage"
)

const chatHelp = "Commands: /export  write the plan to a file, /reset  start over from the profile file, /quit  exit"

type planGenerator interface {
	Generate(ctx context.Context, profile dm.CompanyProfile) (*dm.MarketingPlan, error)
}

// planStore 对话所需的持久化操作
type planStore interface {
	SavePlan(ctx context.Context, username string, profile dm.CompanyProfile, plan *dm.MarketingPlan, transcript []dm.ChatMessage) (*storage.PlanRecord, error)
	AppendMessages(ctx context.Context, runID int64, msgs []dm.ChatMessage) error
}

func newChatCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Generate a plan, then refine it with Markee interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			term := newTerminal()
			defer term.Close()

			r := &repl{
				gen:     rt.engine,
				manager: chat.NewManager(rt.engine),
				in:      term,
				out:     cmd.OutOrStdout(),
				outDir:  outDir,
			}
			if rt.store != nil {
				r.store = rt.store
			}
			return r.run(ctx)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory for /export")
	return cmd
}

// repl 交互式对话。同一时刻只持有一份方案和会话
type repl struct {
	gen     planGenerator
	store   planStore // 未配置数据库时为 nil
	manager *chat.Manager
	in      lineReader
	out     io.Writer
	outDir  string

	session *chat.Session
	runID   int64            // 已落库时的方案 ID
	unsaved []dm.ChatMessage // 写入失败、等待补写的消息
}

func (r *repl) run(ctx context.Context) error {
	if err := r.start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(r.out, chatHelp)

	for {
		fmt.Fprintln(r.out)
		input, err := r.in.ReadInput("you> ")
		if err != nil {
			// Ctrl+C 与 Ctrl+D 都视为退出
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line := strings.TrimSpace(input)
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/export":
			s := r.session
			if err := writeExports(r.outDir, s.Profile(), s.Plan(), false); err != nil {
				logger.Log.Errorf("导出失败: %v", err)
			}
			continue
		case "/reset":
			r.reset()
			if err := r.start(ctx); err != nil {
				return err
			}
			continue
		}
		r.send(ctx, line)
	}
}

// start 读取画像、生成方案并打开会话
func (r *repl) start(ctx context.Context) error {
	profile, err := readProfile(flagProfile)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Generating a marketing plan for %s...\n", profile.Name)

	plan, err := r.gen.Generate(ctx, profile)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, export.Text(profile, plan))

	session, err := r.manager.Open(profile, plan)
	if err != nil {
		return err
	}
	r.session = session

	if r.store != nil {
		rec, err := r.store.SavePlan(ctx, cliUser, profile, plan, session.Transcript())
		if err != nil {
			logger.Log.Errorf("保存方案失败: %v", err)
		} else {
			r.runID = rec.ID
		}
	}

	r.printReply(session.Transcript()[0])
	return nil
}

// reset 一次性丢弃方案、会话和对话记录
func (r *repl) reset() {
	if r.session != nil {
		r.manager.Close(r.session.ID())
	}
	r.session = nil
	r.runID = 0
	r.unsaved = nil
	fmt.Fprintln(r.out, "Plan cleared.")
}

func (r *repl) send(ctx context.Context, text string) {
	turn, err := r.session.Exchange(ctx, text)
	var chatErr *chat.ChatError
	if err != nil && !errors.As(err, &chatErr) {
		fmt.Fprintln(r.out, "Error:", err)
		return
	}
	r.printReply(turn.Reply)

	if r.store == nil || r.runID == 0 {
		return
	}
	batch := append(r.unsaved, turn.User, turn.Reply)
	if err := r.store.AppendMessages(ctx, r.runID, batch); err != nil {
		r.unsaved = batch
		logger.Log.Errorf("保存对话记录失败，%d 条待补写: %v", len(batch), err)
		return
	}
	r.unsaved = nil
}

func (r *repl) printReply(msg dm.ChatMessage) {
	fmt.Fprintf(r.out, "\nMarkee> %s\n", msg.Text)
}
