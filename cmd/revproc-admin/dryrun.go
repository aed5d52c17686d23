package main

import (
	"context"

	"github.com/cms-pki/revproc/core"
	blog "github.com/cms-pki/revproc/log"
)

// dryRunServicer stands in for the repository servicer when the tool runs in
// dry-run mode: it logs the status changes a real run would make and touches
// nothing. Requests still complete successfully so the rest of the pipeline
// (outcome interpretation, audit events) behaves as it would for real.
type dryRunServicer struct {
	log blog.Logger
}

func (d dryRunServicer) Service(_ context.Context, req *core.RevocationRequest) error {
	switch req.Type {
	case core.TypeRevocation:
		for _, rc := range req.RevokedCerts {
			d.log.Infof("dry-run: would revoke serial %s, reason %d",
				core.AuditSerialHex(rc.Target.Serial), req.Reason)
		}
	case core.TypeUnrevocation:
		for _, serial := range req.Serials {
			d.log.Infof("dry-run: would take serial %s off hold", core.AuditSerialHex(serial))
		}
	}
	return nil
}
