package api

import (
	"context"
	"fmt"

	"github.com/rickgao/parkwatch/internal/model"
)

// GetParkingState fetches the administrative parking-state report.
// Requires an admin token.
func (c *Client) GetParkingState(ctx context.Context) ([]model.ZoneReport, error) {
	var report []model.ZoneReport
	if err := c.get(ctx, "/admin/reports/parking-state", nil, &report); err != nil {
		return nil, fmt.Errorf("get parking state: %w", err)
	}
	return report, nil
}
