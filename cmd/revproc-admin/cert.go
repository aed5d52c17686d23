package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/cms-pki/revproc/core"
	"github.com/cms-pki/revproc/processor"
	"github.com/cms-pki/revproc/revocation"
)

// subcommandRevokeCert encapsulates the "revproc-admin revoke-cert" command.
// It accepts several flags specifying different ways the to-be-revoked
// certificates can be identified, resolves them against the repository, and
// runs one revocation operation over the whole batch.
type subcommandRevokeCert struct {
	serial      string
	serialsFile string
	filter      string
	maxResults  int
	reasonStr   string
	invalidity  string
	comment     string
	caCert      bool
}

var _ subcommand = (*subcommandRevokeCert)(nil)

func (s *subcommandRevokeCert) Desc() string {
	return "Revoke one or more certificates"
}

func (s *subcommandRevokeCert) Flags(flags *flag.FlagSet) {
	flags.StringVar(&s.serial, "serial", "", "Revoke the certificate with this serial (hex with 0x prefix, or decimal)")
	flags.StringVar(&s.serialsFile, "serials-file", "", "Revoke all certificates whose serials are in this file, one per line")
	flags.StringVar(&s.filter, "filter", "", "Revoke all certificates matching this repository filter expression")
	flags.IntVar(&s.maxResults, "max-results", 0, "Cap the number of certificates a -filter search may select (0 = repository default)")
	flags.StringVar(&s.reasonStr, "reason", "unspecified", "Revocation reason name (see list-reasons)")
	flags.StringVar(&s.invalidity, "invalidity", "", "Invalidity date to attach as a CRL entry extension (RFC 3339)")
	flags.StringVar(&s.comment, "comment", "", "Free-form comment recorded on the request")
	flags.BoolVar(&s.caCert, "ca-cert", false, "Allow revoking system (CA) certificates - use with extreme caution")
}

func (s *subcommandRevokeCert) Run(ctx context.Context, a *admin) error {
	reason, err := revocation.StringToReason(s.reasonStr)
	if err != nil {
		return fmt.Errorf("%s (allowed: %s)", err, revocation.AllowedReasonsMessage(revocation.AgentAllowedReasons))
	}
	if _, ok := revocation.AgentAllowedReasons[reason]; !ok {
		return fmt.Errorf("reason %q is not allowed for agent revocation (allowed: %s)",
			s.reasonStr, revocation.AllowedReasonsMessage(revocation.AgentAllowedReasons))
	}

	var invalidityDate *time.Time
	if s.invalidity != "" {
		parsed, err := time.Parse(time.RFC3339, s.invalidity)
		if err != nil {
			return fmt.Errorf("parsing invalidity date: %w", err)
		}
		invalidityDate = &parsed
	}

	criteria, err := buildCriteria(s.serial, s.serialsFile, s.filter, s.maxResults)
	if err != nil {
		return err
	}

	targets, err := a.proc.SelectTargets(ctx, criteria)
	if err != nil {
		return fmt.Errorf("selecting certificates: %w", err)
	}
	a.log.Infof("Found %d certificates to revoke", len(targets))

	outcome, err := a.proc.Process(ctx, processor.Request{
		Targets:         targets,
		Reason:          reason,
		InvalidityDate:  invalidityDate,
		Comments:        s.comment,
		Requestor:       core.RequestorAgent,
		SubjectID:       adminUsername(),
		RequesterID:     adminUsername(),
		CACertOperation: s.caCert,
	})
	if err != nil {
		return fmt.Errorf("revoking certificates: %w", err)
	}

	printOutcome(a, outcome)
	return nil
}

// subcommandUnrevokeCert encapsulates the "revproc-admin unrevoke-cert"
// command, which takes certificates revoked with reason certificateHold off
// hold again.
type subcommandUnrevokeCert struct {
	serial      string
	serialsFile string
	comment     string
}

var _ subcommand = (*subcommandUnrevokeCert)(nil)

func (s *subcommandUnrevokeCert) Desc() string {
	return "Take one or more on-hold certificates off hold"
}

func (s *subcommandUnrevokeCert) Flags(flags *flag.FlagSet) {
	flags.StringVar(&s.serial, "serial", "", "Unrevoke the certificate with this serial (hex with 0x prefix, or decimal)")
	flags.StringVar(&s.serialsFile, "serials-file", "", "Unrevoke all certificates whose serials are in this file, one per line")
	flags.StringVar(&s.comment, "comment", "", "Free-form comment recorded on the request")
}

func (s *subcommandUnrevokeCert) Run(ctx context.Context, a *admin) error {
	criteria, err := buildCriteria(s.serial, s.serialsFile, "", 0)
	if err != nil {
		return err
	}

	targets, err := a.proc.SelectTargets(ctx, criteria)
	if err != nil {
		return fmt.Errorf("selecting certificates: %w", err)
	}
	a.log.Infof("Found %d certificates to take off hold", len(targets))

	outcome, err := a.proc.Process(ctx, processor.Request{
		Targets:     targets,
		Reason:      ocsp.RemoveFromCRL,
		Comments:    s.comment,
		Requestor:   core.RequestorAgent,
		SubjectID:   adminUsername(),
		RequesterID: adminUsername(),
	})
	if err != nil {
		return fmt.Errorf("unrevoking certificates: %w", err)
	}

	printOutcome(a, outcome)
	return nil
}

// buildCriteria translates the input-selection flags into selection criteria,
// enforcing that exactly one method was given.
func buildCriteria(serial, serialsFile, filter string, maxResults int) (processor.Criteria, error) {
	var set int
	for _, present := range []bool{serial != "", serialsFile != "", filter != ""} {
		if present {
			set++
		}
	}
	if set == 0 {
		return processor.Criteria{}, errors.New("at least one input method flag must be specified")
	} else if set > 1 {
		return processor.Criteria{}, errors.New("more than one input method flag specified")
	}

	switch {
	case serial != "":
		parsed, err := core.ParseSerial(serial)
		if err != nil {
			return processor.Criteria{}, err
		}
		return processor.Criteria{Serials: []*big.Int{parsed}}, nil
	case serialsFile != "":
		serials, err := serialsFromFile(serialsFile)
		if err != nil {
			return processor.Criteria{}, err
		}
		return processor.Criteria{Serials: serials}, nil
	default:
		return processor.Criteria{Filter: filter, MaxResults: maxResults}, nil
	}
}

func serialsFromFile(filePath string) ([]*big.Int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening serials file: %w", err)
	}
	defer file.Close()

	var serials []*big.Int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		serial, err := core.ParseSerial(line)
		if err != nil {
			return nil, fmt.Errorf("parsing serials file: %w", err)
		}
		serials = append(serials, serial)
	}
	return serials, scanner.Err()
}

// printOutcome writes a human-readable summary of one processed operation.
func printOutcome(a *admin, outcome *processor.Outcome) {
	fmt.Printf("Outcome: %s\n", outcome.Kind)
	if outcome.RequestID != "" {
		fmt.Printf("Request: %s (%s)\n", outcome.RequestID, outcome.Status)
	}
	fmt.Printf("Certificates processed: %d\n", len(outcome.Processed))
	for _, note := range outcome.Skipped {
		fmt.Printf("Skipped %s: %s\n", core.AuditSerialHex(note.Serial), note.Detail)
	}
	for _, detail := range outcome.ServiceErrors {
		fmt.Printf("Service error: %s\n", detail)
	}
	if outcome.CRL != nil {
		printCRLStatus(outcome.CRL)
	}
	if outcome.Publishing != nil && outcome.Publishing.Enabled {
		fmt.Printf("Directory publishing: %d of %d certificates updated\n",
			outcome.Publishing.CertsUpdated, outcome.Publishing.CertsToUpdate)
		if outcome.Publishing.Error != "" {
			fmt.Printf("Directory publishing error: %s\n", outcome.Publishing.Error)
		}
	}
}
