package main

import (
	"fmt"
	"os/user"

	"github.com/jmhodges/clock"

	"github.com/cms-pki/revproc/cmd"
	"github.com/cms-pki/revproc/core"
	"github.com/cms-pki/revproc/features"
	blog "github.com/cms-pki/revproc/log"
	"github.com/cms-pki/revproc/processor"
	"github.com/cms-pki/revproc/queue"
	"github.com/cms-pki/revproc/sa"
)

// admin holds the wired-up deployment the subcommands act on.
type admin struct {
	proc  *processor.Processor
	queue *queue.Memory
	db    *sa.Database

	dryRun bool
	clk    clock.Clock
	log    blog.Logger
}

// configuredCA is the core.CAFacade built from the config's issuing-point
// list.
type configuredCA struct {
	points []core.IssuingPointRef
}

func (ca *configuredCA) IssuingPoints() []core.IssuingPointRef {
	return ca.points
}

// enrollmentRA is the core.RAFacade for RA deployments: a certificate
// originates from an enrollment request when the repository recorded that
// request's id on it.
type enrollmentRA struct{}

func (enrollmentRA) OriginatedFrom(target *core.CertificateTarget, requestID string) bool {
	return target.EnrollmentRequestID == requestID
}

// newAdmin reads the config and wires the repository, queue and processor.
// Unlike the long-running services, this does all of its own config parsing
// and dependency setup.
func newAdmin(configFile string, dryRun bool) (*admin, error) {
	var c cmd.PKIConfig
	err := cmd.ReadConfigFile(configFile, &c)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	stats, logger := cmd.StatsAndLogging(c.Syslog)
	clk := clock.New()

	err = features.Set(c.Features)
	if err != nil {
		return nil, fmt.Errorf("setting feature flags: %w", err)
	}

	db, err := sa.NewSQLite(c.DB.File, logger, clk)
	if err != nil {
		return nil, fmt.Errorf("opening certificate repository: %w", err)
	}

	var scope core.AuthorityScope
	var points []core.IssuingPointRef
	switch c.Authority.Kind {
	case "ra":
		scope = core.RAScope(enrollmentRA{})
	default:
		for _, ip := range c.Authority.IssuingPoints {
			points = append(points, core.IssuingPointRef{ID: ip.ID, Master: ip.Master})
		}
		scope = core.CAScope(&configuredCA{points: points})
	}

	var servicer queue.Servicer = &queue.RepositoryServicer{
		Writer: db,
		Points: points,
		LDAP:   c.Publisher.LDAPEnabled,
	}
	if dryRun {
		servicer = dryRunServicer{log: logger}
	}
	q := queue.NewMemory(clk, logger, servicer, c.Queue.RequireApproval)

	var pub core.Publisher
	if c.Publisher.LDAPEnabled {
		pub = enabledPublisher{}
	}

	proc := processor.New(db, q, scope, pub, logger, clk, stats)

	return &admin{
		proc:   proc,
		queue:  q,
		db:     db,
		dryRun: dryRun,
		clk:    clk,
		log:    logger,
	}, nil
}

// enabledPublisher is the trivial core.Publisher for deployments with LDAP
// publishing switched on in config.
type enabledPublisher struct{}

func (enabledPublisher) LDAPEnabled() bool {
	return true
}

// adminUsername names the operator for the audit trail.
func adminUsername() string {
	u, err := user.Current()
	if err != nil {
		return "unknown-admin"
	}
	return u.Username
}
