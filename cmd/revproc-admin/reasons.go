package main

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/cms-pki/revproc/revocation"
)

// subcommandListReasons encapsulates the "revproc-admin list-reasons"
// command.
type subcommandListReasons struct{}

var _ subcommand = (*subcommandListReasons)(nil)

func (s *subcommandListReasons) Desc() string {
	return "List the revocation reason codes agents may use"
}

func (s *subcommandListReasons) Flags(_ *flag.FlagSet) {}

func (s *subcommandListReasons) Run(_ context.Context, _ *admin) error {
	codes := make([]revocation.Reason, 0, len(revocation.AgentAllowedReasons))
	for code := range revocation.AgentAllowedReasons {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	fmt.Printf("\nRevocation reason codes\n-----------------------\n")
	for _, code := range codes {
		fmt.Printf("%d: %s\n", code, revocation.ReasonToString[code])
	}

	return nil
}
