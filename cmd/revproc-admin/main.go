// Package main provides the "revproc-admin" tool, which performs
// administrative certificate status changes (revocation, unrevocation) and
// request-queue maintenance against a revproc deployment.
//
// Run "revproc-admin -h" for a list of flags and subcommands.
//
// Note that the tool runs in "dry-run" mode *by default*. All commands which
// would mutate the certificate repository instead print log lines
// representing the work they would do, unless the "-dry-run=false" flag is
// passed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cms-pki/revproc/cmd"
)

// subcommand specifies the set of methods that a struct must implement to be
// usable as an admin subcommand.
type subcommand interface {
	// Desc should return a short (one-sentence) description of the subcommand
	// for use in help/usage strings.
	Desc() string
	// Flags should register command line flags on the provided flagset. These
	// should use the "TypeVar" methods on the provided flagset, targeting
	// fields on the subcommand struct, so that the results of command line
	// parsing can be used by other methods on the struct.
	Flags(*flag.FlagSet)
	// Run should do all of the subcommand's heavy lifting, with behavior gated
	// on the subcommand struct's member fields which have been populated from
	// the command line. The provided admin object gives access to the
	// processor, the request queue, and the configured logger.
	Run(context.Context, *admin) error
}

func main() {
	defer cmd.AuditPanic()

	// This is the registry of all subcommands that the admin tool can run.
	subcommands := map[string]subcommand{
		"revoke-cert":     &subcommandRevokeCert{},
		"unrevoke-cert":   &subcommandUnrevokeCert{},
		"resolve-request": &subcommandResolveRequest{},
		"crl-status":      &subcommandCRLStatus{},
		"list-reasons":    &subcommandListReasons{},
	}

	defaultUsage := flag.Usage
	flag.Usage = func() {
		defaultUsage()
		fmt.Printf("\nSubcommands:\n")
		for name, command := range subcommands {
			fmt.Printf("  %s\n", name)
			fmt.Printf("\t%s\n", command.Desc())
		}
		fmt.Print("\nYou can run \"revproc-admin <subcommand> -help\" to get usage for that subcommand.\n")
	}

	// Start by parsing just the global flags before we get to the subcommand,
	// if they're present.
	configFile := flag.String("config", "", "Path to the configuration file for this service (required)")
	dryRun := flag.Bool("dry-run", true, "Print actions instead of mutating the certificate repository")
	flag.Parse()

	// Figure out which subcommand they want us to run.
	unparsedArgs := flag.Args()
	if len(unparsedArgs) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	sub, ok := subcommands[unparsedArgs[0]]
	if !ok {
		flag.Usage()
		os.Exit(1)
	}

	// Then parse the rest of the args according to the selected subcommand's
	// flags, and allow the global flags to be placed after the subcommand
	// name.
	subflags := flag.NewFlagSet(unparsedArgs[0], flag.ExitOnError)
	sub.Flags(subflags)
	flag.VisitAll(func(f *flag.Flag) {
		// For each flag registered at the global/package level, also register
		// it on the subflags FlagSet. The `f.Value` here is a pointer to the
		// same var that the original global flag would populate, so the same
		// variable can be set either way.
		subflags.Var(f.Value, f.Name, f.Usage)
	})
	_ = subflags.Parse(unparsedArgs[1:])

	if *configFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	a, err := newAdmin(*configFile, *dryRun)
	cmd.FailOnError(err, "creating admin object")

	if a.dryRun {
		a.log.AuditInfof("admin tool executing a dry-run with the following arguments: %q", strings.Join(os.Args, " "))
	} else {
		a.log.AuditInfof("admin tool executing with the following arguments: %q", strings.Join(os.Args, " "))
	}

	err = sub.Run(context.Background(), a)
	cmd.FailOnError(err, "executing subcommand")

	if a.dryRun {
		a.log.AuditInfof("admin tool has successfully completed executing a dry-run with the following arguments: %q", strings.Join(os.Args, " "))
		a.log.Info("Dry run complete. Pass -dry-run=false to mutate the certificate repository.")
	} else {
		a.log.AuditInfof("admin tool has successfully completed executing with the following arguments: %q", strings.Join(os.Args, " "))
	}
}
