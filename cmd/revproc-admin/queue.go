package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/cms-pki/revproc/core"
)

// subcommandResolveRequest encapsulates the "revproc-admin resolve-request"
// command, which approves, rejects or cancels a request parked pending agent
// approval.
type subcommandResolveRequest struct {
	requestID string
	action    string
}

var _ subcommand = (*subcommandResolveRequest)(nil)

func (s *subcommandResolveRequest) Desc() string {
	return "Approve, reject or cancel a pending request"
}

func (s *subcommandResolveRequest) Flags(flags *flag.FlagSet) {
	flags.StringVar(&s.requestID, "request", "", "ID of the pending request to resolve (required)")
	flags.StringVar(&s.action, "action", "", "One of approve, reject, or cancel (required)")
}

func (s *subcommandResolveRequest) Run(ctx context.Context, a *admin) error {
	if s.requestID == "" {
		return errors.New("the -request flag is required")
	}

	var req *core.RevocationRequest
	var err error
	switch s.action {
	case "approve":
		req, err = a.queue.Approve(ctx, s.requestID)
	case "reject":
		req, err = a.queue.Reject(ctx, s.requestID)
	case "cancel":
		req, err = a.queue.Cancel(ctx, s.requestID)
	default:
		return fmt.Errorf("unknown action %q: must be approve, reject, or cancel", s.action)
	}
	if err != nil {
		return fmt.Errorf("resolving request: %w", err)
	}

	fmt.Printf("Request %s: %s\n", req.ID, req.Status)
	if req.Result == core.ResultError {
		for _, detail := range req.ServiceErrors {
			fmt.Printf("Service error: %s\n", detail)
		}
	}
	return nil
}
