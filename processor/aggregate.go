package processor

import (
	"github.com/cms-pki/revproc/core"
)

// IssuingPointStatus is the per-issuing-point outcome read off a completed
// request.
type IssuingPointStatus struct {
	ID           string
	UpdateOK     bool
	UpdateError  string
	PublishOK    bool
	PublishError string
	// PublishRecorded is false when the queue attached an update result but
	// no publish result for this point.
	PublishRecorded bool
}

// CRLStatus is the rollup over every non-master issuing point.
type CRLStatus struct {
	PerPoint []IssuingPointStatus
	// UpdateOK is true when every recorded update succeeded.
	UpdateOK bool
	// PublishOK is true when every recorded publish succeeded.
	PublishOK bool
}

// AggregateCRLStatus walks all issuing points of the authority except the
// master CRL, reading the per-point update/publish results the queue attached
// to the request. A point with no recorded update result is omitted; a
// point's publish result is read only when its update result was. Failures do
// not short-circuit the iteration.
func (p *Processor) AggregateCRLStatus(req *core.RevocationRequest) *CRLStatus {
	status := &CRLStatus{UpdateOK: true, PublishOK: true}

	for _, point := range p.scope.CA.IssuingPoints() {
		if point.Master {
			continue
		}

		updateOK, updateErr, recorded := req.CRLUpdateResult(point.ID)
		if !recorded {
			continue
		}
		entry := IssuingPointStatus{
			ID:          point.ID,
			UpdateOK:    updateOK,
			UpdateError: updateErr,
		}
		if !updateOK {
			status.UpdateOK = false
			p.crlFailures.WithLabelValues(point.ID, "update").Inc()
		}

		publishOK, publishErr, recorded := req.CRLPublishResult(point.ID)
		if recorded {
			entry.PublishRecorded = true
			entry.PublishOK = publishOK
			entry.PublishError = publishErr
			if !publishOK {
				status.PublishOK = false
				p.crlFailures.WithLabelValues(point.ID, "publish").Inc()
			}
		}

		status.PerPoint = append(status.PerPoint, entry)
	}

	return status
}

// DirectoryPublishingStatus is the rollup of LDAP directory publishing for
// one request.
type DirectoryPublishingStatus struct {
	Enabled bool
	// CertsToUpdate and CertsUpdated are only meaningful when Enabled.
	CertsToUpdate int
	CertsUpdated  int
	Error         string
}

// AggregateDirectoryPublishing reports whether directory publishing is
// enabled on the authority and, if so, counts per-certificate publish
// successes recorded on the request. A missing publisher reports disabled,
// not an error.
func (p *Processor) AggregateDirectoryPublishing(req *core.RevocationRequest) *DirectoryPublishingStatus {
	if p.pub == nil || !p.pub.LDAPEnabled() {
		return &DirectoryPublishingStatus{Enabled: false}
	}

	status := &DirectoryPublishingStatus{
		Enabled: true,
		Error:   req.LDAPPublishError(),
	}
	for _, serial := range req.TargetSerials() {
		status.CertsToUpdate++
		ok, recorded := req.LDAPPublishResult(serial)
		if recorded && ok {
			status.CertsUpdated++
		}
	}
	return status
}
