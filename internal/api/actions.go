package api

import (
	"context"
	"fmt"

	"github.com/altinukshini/gha-watch/internal/model"
)

func (c *Client) CancelRun(ctx context.Context, run model.Run) error {
	if run.CancelURL == "" {
		return fmt.Errorf("run %d has no cancel url", run.ID)
	}
	if err := c.post(ctx, run.CancelURL); err != nil {
		return fmt.Errorf("cancel run %d: %w", run.ID, err)
	}
	return nil
}

func (c *Client) RerunRun(ctx context.Context, run model.Run) error {
	if run.RerunURL == "" {
		return fmt.Errorf("run %d has no rerun url", run.ID)
	}
	if err := c.post(ctx, run.RerunURL); err != nil {
		return fmt.Errorf("rerun run %d: %w", run.ID, err)
	}
	return nil
}
