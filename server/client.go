package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/chazu/bfi/wire"
)

// Client calls a remote interpreter service. It speaks CBOR unless another
// codec is passed in opts.
type Client struct {
	run   *connect.Client[RunRequest, RunResponse]
	check *connect.Client[CheckRequest, CheckResponse]
}

// NewClient creates a Client for the service at baseURL, e.g.
// "http://localhost:4567".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(wire.CBORCodec{})}, opts...)
	return &Client{
		run:   connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, opts...),
		check: connect.NewClient[CheckRequest, CheckResponse](httpClient, baseURL+CheckProcedure, opts...),
	}
}

// Run executes source remotely.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	resp, err := c.run.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Check analyzes source remotely.
func (c *Client) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, err := c.check.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
