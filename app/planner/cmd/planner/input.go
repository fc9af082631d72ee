package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// lineReader 读取一行用户输入
type lineReader interface {
	ReadInput(prompt string) (string, error)
}

// terminal 基于 liner 的行编辑输入，支持方向键翻阅历史
type terminal struct {
	line        *liner.State
	historyFile string
}

func newTerminal() *terminal {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	t := &terminal{
		line:        line,
		historyFile: filepath.Join(dir, "markee", "chat_history"),
	}
	if f, err := os.Open(t.historyFile); err == nil {
		t.line.ReadHistory(f)
		f.Close()
	}
	return t
}

func (t *terminal) ReadInput(prompt string) (string, error) {
	input, err := t.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		t.line.AppendHistory(input)
	}
	return input, nil
}

// Close 保存历史并恢复终端
func (t *terminal) Close() error {
	if err := os.MkdirAll(filepath.Dir(t.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(t.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			t.line.WriteHistory(f)
			f.Close()
		}
	}
	return t.line.Close()
}
