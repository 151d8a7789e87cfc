package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tracetree/internal/pipeline"
	"tracetree/internal/ui"
)

type batchOutcome struct {
	results []pipeline.FileResult
	err     error
}

func runBatchWithUI(ctx context.Context, title string, files []string, jobs int, base pipeline.Request) ([]pipeline.FileResult, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		req := base
		req.Progress = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.BuildFiles(ctx, files, jobs, req)
		outcomeCh <- batchOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// The program may quit early on ctrl+c; keep the producer from blocking.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
