package treestat

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type shellTarget struct {
	command string
}

// NewShellTarget returns a target that runs command with `sh -c` and writes
// the JSON report to its stdin. It returns nil when command is blank.
func NewShellTarget(command string) ReportTarget {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return nil
	}
	return &shellTarget{command: cmd}
}

func (s *shellTarget) Name() string {
	return "shell"
}

func (s *shellTarget) PublishReport(ctx context.Context, report *Report) error {
	var payload bytes.Buffer
	if err := WriteJSON(&payload, report, -1); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", s.command)
	cmd.Stdin = &payload

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("shell target failed: %w: %s", err, string(output))
	}

	return nil
}
