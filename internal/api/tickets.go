package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/minelotto/lotto-client/internal/auth"
	"github.com/minelotto/lotto-client/internal/model"
)

// requireAuth rejects auth-required calls before any network activity when
// no credential is configured.
func (c *Client) requireAuth() error {
	if c.creds == nil {
		return auth.ErrUnauthenticated
	}
	return nil
}

// GetTickets fetches all tickets for the authenticated user.
func (c *Client) GetTickets(ctx context.Context) ([]model.Ticket, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	var resp TicketsResponse
	if err := c.get(ctx, routeTickets, nil, &resp); err != nil {
		return nil, fmt.Errorf("get tickets: %w", err)
	}
	return resp.Tickets, nil
}

// CreateTicket creates a new ticket for the given address. validDays of 0
// leaves the validity window to the server default.
func (c *Client) CreateTicket(ctx context.Context, btcAddress string, validDays int) (*model.Ticket, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	var resp SingleTicketResponse
	req := CreateTicketRequest{BtcAddress: btcAddress, ValidDays: validDays}
	if err := c.post(ctx, routeTickets, req, &resp); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return &resp.Ticket, nil
}

// GetTicket fetches a single ticket by id.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*model.Ticket, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	var resp SingleTicketResponse
	if err := c.get(ctx, routeTickets+"/"+ticketID, nil, &resp); err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	return &resp.Ticket, nil
}

// GetTicketAttempts fetches a page of a ticket's attempt history.
func (c *Client) GetTicketAttempts(ctx context.Context, ticketID string, limit, skip int) (*AttemptsResponse, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if skip > 0 {
		query.Set("skip", strconv.Itoa(skip))
	}

	var resp AttemptsResponse
	if err := c.get(ctx, routeTickets+"/"+ticketID+"/attempts", query, &resp); err != nil {
		return nil, fmt.Errorf("get ticket attempts %s: %w", ticketID, err)
	}
	return &resp, nil
}
