// Package mcp exposes the session controller to the host chat
// application over the Model Context Protocol: state reads, extraction
// runs, and the review queue.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"chronicle/internal/session"
)

type Server struct {
	ctrl *session.Controller
	mcp  *sdk.Server
}

func NewServer(ctrl *session.Controller, version string) *Server {
	s := &Server{
		ctrl: ctrl,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "chronicle",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
