// Package review implements the interactive console for triaging
// flagged files: a list of findings with a content detail view, review
// verdicts and free-form comments, persisted as they are entered.
package review

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"sfh-go/internal/sfh"
)

// Console drives one review session over a workspace.
type Console struct {
	db        sfh.Database
	workspace string
	logger    sfh.Logger
}

func NewConsole(db sfh.Database, workspace string, logger sfh.Logger) *Console {
	if logger == nil {
		logger = sfh.NewNopLogger()
	}
	return &Console{db: db, workspace: workspace, logger: logger}
}

// Run loads the workspace's flagged files and blocks until the user
// quits the console.
func (c *Console) Run() error {
	records, err := c.db.FlaggedFiles(c.workspace)
	if err != nil {
		return fmt.Errorf("loading flagged files: %w", err)
	}
	if len(records) == 0 {
		fmt.Printf("no flagged files in workspace %s\n", c.workspace)
		return nil
	}

	m := newModel(c.db, c.workspace, records)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running review console: %w", err)
	}
	if fm, ok := final.(uiModel); ok && fm.err != nil {
		return fm.err
	}
	c.logger.Info("review session finished", "workspace", c.workspace, "files", len(records))
	return nil
}
