package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/okian/fillcheck/internal/adapters/csvtable"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/pkg/logger"
)

// CommandJudge delegates judgement to an external program. The program is
// invoked as `<command> <args...> <table.csv>` and must print the judgement
// record as JSON on stdout.
type CommandJudge struct {
	command string
	args    []string
	tempDir string
	logger  logger.Logger
}

// NewCommandJudge creates a CommandJudge for command.
func NewCommandJudge(command string, args []string, opts ...CommandOption) *CommandJudge {
	j := &CommandJudge{
		command: command,
		args:    args,
		logger:  logger.Get().Named("judge"),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Evaluate stages the table as CSV and runs the external judge on it.
func (j *CommandJudge) Evaluate(ctx context.Context, events *csvtable.Table) (*model.Judgement, error) {
	dir, err := os.MkdirTemp(j.tempDir, "judge-")
	if err != nil {
		return nil, fmt.Errorf("%w: stage table: %w", ErrJudgeFailed, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "events.csv")
	if err := events.WriteFile(path); err != nil {
		return nil, fmt.Errorf("%w: stage table: %w", ErrJudgeFailed, err)
	}

	args := append(append([]string(nil), j.args...), path)
	cmd := exec.CommandContext(ctx, j.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	j.logger.Debug(ctx, "running external judge", logger.String("command", j.command), logger.Int("rows", events.Len()))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w: %s", ErrJudgeFailed, j.command, err, bytes.TrimSpace(stderr.Bytes()))
	}

	var out model.Judgement
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("%w: decode judgement: %w", ErrJudgeFailed, err)
	}
	for i, c := range out.Candidates {
		if !c.Decision.Valid() {
			return nil, fmt.Errorf("%w: candidate %d (%s) has unknown decision %q", ErrJudgeFailed, i, c.Key(), c.Decision)
		}
	}
	if out.GroupsEvaluated == 0 {
		out.GroupsEvaluated = len(out.Candidates)
	}
	return &out, nil
}
