package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rickgao/parkwatch/internal/model"
)

// GetGates fetches all gates.
func (c *Client) GetGates(ctx context.Context) ([]model.Gate, error) {
	var gates []model.Gate
	if err := c.get(ctx, "/master/gates", nil, &gates); err != nil {
		return nil, fmt.Errorf("get gates: %w", err)
	}
	return gates, nil
}

// GetZones fetches the zones served by gateID. An empty gateID returns every zone.
func (c *Client) GetZones(ctx context.Context, gateID string) ([]model.ZoneState, error) {
	var query url.Values
	if gateID != "" {
		query = url.Values{"gateId": {gateID}}
	}

	var zones []model.ZoneState
	if err := c.get(ctx, "/master/zones", query, &zones); err != nil {
		return nil, fmt.Errorf("get zones: %w", err)
	}
	return zones, nil
}

// GetCategories fetches the category rate cards.
func (c *Client) GetCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := c.get(ctx, "/master/categories", nil, &categories); err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	return categories, nil
}
