// Package chat talks to the conversational backend and folds each reply's
// panels into the dashboard.
package chat

import (
	"context"
	"strings"

	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
	"github.com/bryfeng/sherpa-front-sub002/internal/httpx"
	"github.com/bryfeng/sherpa-front-sub002/internal/model"
	"github.com/bryfeng/sherpa-front-sub002/internal/registry"
)

type Client struct {
	http    *httpx.Client
	baseURL string
}

func NewClient(http *httpx.Client, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = registry.DefaultBackendURL
	}
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Send(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return model.ChatResponse{}, clierr.New(clierr.CodeUsage, "chat request has no messages")
	}
	var resp model.ChatResponse
	if _, err := c.http.PostJSON(ctx, c.baseURL+registry.ChatPath, req, nil, &resp); err != nil {
		return model.ChatResponse{}, err
	}
	return resp, nil
}
