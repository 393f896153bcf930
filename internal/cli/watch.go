package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/riskcanvas/analysis-client/internal/orchestrator"
	"github.com/riskcanvas/analysis-client/internal/session"
)

// watchJob follows the snapshot stream until the job reaches a terminal
// state, answering the mode choice when the job pauses after
// pre-organization.
func watchJob(ctx context.Context, orch *orchestrator.Orchestrator, mode string, params json.RawMessage) error {
	watch := orch.Watch(ctx)
	chosen := false
	var last session.Snapshot

	for {
		var snap session.Snapshot
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-watch:
			if !ok {
				return nil
			}
			snap = s
		}

		if snap.Progress != last.Progress || snap.Message != last.Message {
			fmt.Printf("[%3d%%] %s\n", snap.Progress, snap.Message)
		}
		last = snap

		switch {
		case snap.Status == session.StatusFailed:
			return &orchestrator.TerminalJobError{Message: snap.Message}
		case snap.Status == session.StatusCompleted && snap.FinalResult != nil:
			fmt.Println(string(snap.FinalResult.Report))
			return nil
		case snap.Status == session.StatusCompleted:
			// finished without a stored result: surface the finalize
			// failure instead of waiting on a snapshot that will not
			// change again; resume retries the fetch
			if err := orch.FinalizeErr(); err != nil {
				return err
			}
		}

		if orch.State() == orchestrator.StateAwaitingChoice && !chosen {
			chosen = true
			m := mode
			if m == "" {
				var err error
				m, err = promptMode()
				if err != nil {
					return err
				}
			}
			if err := orch.SelectMode(ctx, m, params); err != nil {
				return err
			}
		}
	}
}

func promptMode() (string, error) {
	fmt.Print("Pre-organization done. Analysis mode [single/multi]: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading mode choice: %w", err)
	}
	mode := strings.TrimSpace(line)
	if mode == "" {
		mode = "single"
	}
	return mode, nil
}
