// The ask command: run one question through the full pipeline with
// console delivery. Useful for verifying credentials and tuning without
// a Discord round trip.

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/minase/kotae/workflow"
)

// Ask answers a single question on the terminal.
func Ask(ctx context.Context, app *App, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	sink := &consoleSink{}
	runner := app.newRunner(func(token string) workflow.Sink { return sink })

	runner.Execute(ctx, workflow.Run{
		RequestID:  "console",
		Token:      "console",
		Message:    question,
		InstanceID: uuid.NewString(),
	})

	if sink.lastContent == "" {
		return fmt.Errorf("run produced no output")
	}
	fmt.Printf("\n%s\n", sink.lastContent)
	return nil
}

// consoleSink plays the role of the message being edited: intermediate
// edits show as one-line progress, the last content printed in full after
// the run.
type consoleSink struct {
	lastContent string
}

func (s *consoleSink) PostNew(ctx context.Context, content string) error {
	fmt.Printf("… %s\n", content)
	return nil
}

func (s *consoleSink) EditExisting(ctx context.Context, content string) (bool, error) {
	fmt.Printf("… %s\n", firstLine(content))
	s.lastContent = content
	return true, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
