package api

import (
	"context"
	"fmt"
)

// GetStats fetches the aggregate system snapshot and recent activity.
func (c *Client) GetStats(ctx context.Context) (*StatsResponse, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	var resp StatsResponse
	if err := c.get(ctx, routeStats, nil, &resp); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &resp, nil
}
