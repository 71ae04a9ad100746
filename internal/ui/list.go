package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/syncdeck/syncdeck/internal/formatter"
	"github.com/syncdeck/syncdeck/internal/models"
)

var (
	_ list.Item = runItem{}
)

// runItem wraps [models.Run] to implement [list.Item].
type runItem struct {
	run *models.Run
}

func (i runItem) FilterValue() string { return i.run.RunKey() }

func (i runItem) Title() string {
	return fmt.Sprintf("#%d %s", i.run.Sequence(), i.run.StartedAt().Format("2006-01-02 15:04:05"))
}

func (i runItem) Description() string {
	if i.run.FinishedAt().IsZero() {
		return "running"
	}

	result := "ok"
	if i.run.HadError() {
		result = "failed"
	}
	if code := i.run.ExitCode(); code != nil {
		result = fmt.Sprintf("%s (exit %d)", result, *code)
	}

	return fmt.Sprintf("%s • %s • snap %d/%d apply %d/%d",
		result,
		formatter.FormatDuration(i.run.Duration()),
		i.run.SnapDone(), i.run.SnapTotal(),
		i.run.ApplyDone(), i.run.ApplyTotal(),
	)
}
