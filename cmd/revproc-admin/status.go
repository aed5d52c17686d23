package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/cms-pki/revproc/processor"
)

// subcommandCRLStatus encapsulates the "revproc-admin crl-status" command,
// which prints the per-issuing-point CRL update/publish rollup for a
// previously serviced request.
type subcommandCRLStatus struct {
	requestID string
}

var _ subcommand = (*subcommandCRLStatus)(nil)

func (s *subcommandCRLStatus) Desc() string {
	return "Show per-issuing-point CRL status for a serviced request"
}

func (s *subcommandCRLStatus) Flags(flags *flag.FlagSet) {
	flags.StringVar(&s.requestID, "request", "", "ID of the request to report on (required)")
}

func (s *subcommandCRLStatus) Run(ctx context.Context, a *admin) error {
	if s.requestID == "" {
		return errors.New("the -request flag is required")
	}

	req, err := a.queue.FindRequest(ctx, s.requestID)
	if err != nil {
		return fmt.Errorf("looking up request: %w", err)
	}
	fmt.Printf("Request %s: %s %s\n", req.ID, req.Type, req.Status)

	printCRLStatus(a.proc.AggregateCRLStatus(req))
	return nil
}

func printCRLStatus(status *processor.CRLStatus) {
	if len(status.PerPoint) == 0 {
		fmt.Println("No CRL issuing point results recorded")
		return
	}
	for _, point := range status.PerPoint {
		line := fmt.Sprintf("Issuing point %s: update %s", point.ID, okString(point.UpdateOK))
		if point.UpdateError != "" {
			line += fmt.Sprintf(" (%s)", point.UpdateError)
		}
		if point.PublishRecorded {
			line += fmt.Sprintf(", publish %s", okString(point.PublishOK))
			if point.PublishError != "" {
				line += fmt.Sprintf(" (%s)", point.PublishError)
			}
		}
		fmt.Println(line)
	}
	fmt.Printf("Overall: update %s, publish %s\n", okString(status.UpdateOK), okString(status.PublishOK))
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAILED"
}
