package processor

import (
	"math/big"
	"time"

	"github.com/jmhodges/clock"
	"golang.org/x/crypto/ocsp"

	"github.com/cms-pki/revproc/core"
	"github.com/cms-pki/revproc/features"
	blog "github.com/cms-pki/revproc/log"
	"github.com/cms-pki/revproc/revocation"
)

// Audit event names. Every operation emits exactly one request event, and
// exactly one processed event if and only if it reaches a final request
// status (complete, rejected or canceled).
const (
	auditRequestEvent   = "CERT_STATUS_CHANGE_REQUEST"
	auditProcessedEvent = "CERT_STATUS_CHANGE_REQUEST_PROCESSED"

	auditSuccess = "success"
	auditFailure = "failure"
)

// certAuditEntry is the per-certificate detail embedded in a processed event
// when a request completed with service errors.
type certAuditEntry struct {
	Serial string `json:"serial"`
	Error  string `json:"error,omitempty"`
}

// auditEvent is the flat record written to the audit sink for both event
// kinds. Reason and ApprovalStatus are only populated on processed events.
type auditEvent struct {
	Time           string           `json:"time"`
	Outcome        string           `json:"outcome"`
	SubjectID      string           `json:"subjectID"`
	RequesterID    string           `json:"requesterID"`
	Serials        []string         `json:"serials"`
	RequestType    string           `json:"requestType"`
	Reason         *int64           `json:"reason,omitempty"`
	ApprovalStatus string           `json:"approvalStatus,omitempty"`
	// ServiceErrors is the batch-level failure list; PerCert attributes
	// failures to individual certificates where servicing recorded them.
	ServiceErrors []string         `json:"serviceErrors,omitempty"`
	PerCert       []certAuditEntry `json:"perCert,omitempty"`
}

// auditor emits the request/processed audit event pair through the audit log.
type auditor struct {
	log blog.Logger
	clk clock.Clock
}

func (a auditor) now() string {
	return a.clk.Now().UTC().Format(time.RFC3339)
}

// auditSerial renders a serial for the audit trail using whichever of the two
// legacy normalizations the deployment selected.
func auditSerial(serial *big.Int) string {
	if features.Enabled("PlainHexAuditSerials") {
		return core.AuditSerialPlainHex(serial)
	}
	return core.AuditSerialHex(serial)
}

func auditSerials(serials []*big.Int) []string {
	if len(serials) == 0 {
		return []string{core.EmptySerial}
	}
	out := make([]string, 0, len(serials))
	for _, serial := range serials {
		out = append(out, auditSerial(serial))
	}
	return out
}

// requestTypeLabel maps an operation to its legacy audit label: placing a
// certificate on hold audits as "on-hold", taking one off hold as "off-hold",
// everything else as "revoke".
func requestTypeLabel(typ core.RequestType, reason revocation.Reason) string {
	if typ == core.TypeUnrevocation {
		return "off-hold"
	}
	if reason == ocsp.CertificateHold {
		return "on-hold"
	}
	return "revoke"
}

// request emits the CERT_STATUS_CHANGE_REQUEST event.
func (a auditor) request(outcome string, in Request, typ core.RequestType, serials []*big.Int) {
	a.log.AuditObject(auditRequestEvent, auditEvent{
		Time:        a.now(),
		Outcome:     outcome,
		SubjectID:   in.SubjectID,
		RequesterID: in.RequesterID,
		Serials:     auditSerials(serials),
		RequestType: requestTypeLabel(typ, in.Reason),
	})
}

// processed emits the CERT_STATUS_CHANGE_REQUEST_PROCESSED event. perCert
// carries best-effort per-certificate detail on service-error paths and is
// nil otherwise.
func (a auditor) processed(outcome string, in Request, req *core.RevocationRequest, perCert []certAuditEntry) {
	reason := int64(in.Reason)
	a.log.AuditObject(auditProcessedEvent, auditEvent{
		Time:           a.now(),
		Outcome:        outcome,
		SubjectID:      in.SubjectID,
		RequesterID:    in.RequesterID,
		Serials:        auditSerials(req.TargetSerials()),
		RequestType:    requestTypeLabel(req.Type, in.Reason),
		Reason:         &reason,
		ApprovalStatus: string(req.Status),
		ServiceErrors:  req.ServiceErrors,
		PerCert:        perCert,
	})
}
