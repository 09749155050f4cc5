package api

import (
	"context"
	"fmt"
)

// RequestLowEntropy performs a synchronous entropy exchange: the response is
// both request and answer in one round trip.
func (c *Client) RequestLowEntropy(ctx context.Context, address string, stars int) (*LowEntropyResponse, error) {
	var resp LowEntropyResponse
	req := LowEntropyRequest{Address: address, Stars: stars}
	if err := c.post(ctx, routeEntropyLow, req, &resp); err != nil {
		return nil, fmt.Errorf("request low entropy: %w", err)
	}
	return &resp, nil
}

// RequestHighEntropy submits an asynchronous entropy request. The returned
// ack carries the server-assigned correlation id; the result itself arrives
// later over the push channel.
func (c *Client) RequestHighEntropy(ctx context.Context, address string, stars int, seed string) (*HighEntropyAck, error) {
	var ack HighEntropyAck
	req := HighEntropyRequest{Address: address, Stars: stars, Seed: seed}
	if err := c.post(ctx, routeEntropyHigh, req, &ack); err != nil {
		return nil, fmt.Errorf("request high entropy: %w", err)
	}
	return &ack, nil
}
