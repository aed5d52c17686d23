package core

import (
	"math/big"
)

// Well-known Ext keys under which the queue's servicing records per-issuing-
// point CRL results and per-certificate directory publishing results. The
// aggregator reads these back off a completed request.
const (
	crlUpdateStatusPrefix  = "crlUpdateStatus."
	crlUpdateErrorPrefix   = "crlUpdateError."
	crlPublishStatusPrefix = "crlPublishStatus."
	crlPublishErrorPrefix  = "crlPublishError."
	ldapPublishPrefix      = "ldapPublishStatus."
	ldapPublishErrorKey    = "ldapPublishError"
	certErrorPrefix        = "serviceError."

	statusSuccess = "success"
	statusFailure = "failure"
)

func statusValue(ok bool) string {
	if ok {
		return statusSuccess
	}
	return statusFailure
}

func (r *RevocationRequest) ext() map[string]string {
	if r.Ext == nil {
		r.Ext = make(map[string]string)
	}
	return r.Ext
}

// SetCRLUpdateResult records the CRL update result for one issuing point. An
// empty errMsg records no error detail.
func (r *RevocationRequest) SetCRLUpdateResult(ipID string, ok bool, errMsg string) {
	r.ext()[crlUpdateStatusPrefix+ipID] = statusValue(ok)
	if errMsg != "" {
		r.ext()[crlUpdateErrorPrefix+ipID] = errMsg
	}
}

// CRLUpdateResult reads back the CRL update result for one issuing point.
// recorded is false when the queue never attached a result for that point.
func (r *RevocationRequest) CRLUpdateResult(ipID string) (ok bool, errMsg string, recorded bool) {
	v, recorded := r.Ext[crlUpdateStatusPrefix+ipID]
	if !recorded {
		return false, "", false
	}
	return v == statusSuccess, r.Ext[crlUpdateErrorPrefix+ipID], true
}

// SetCRLPublishResult records the CRL publish result for one issuing point.
func (r *RevocationRequest) SetCRLPublishResult(ipID string, ok bool, errMsg string) {
	r.ext()[crlPublishStatusPrefix+ipID] = statusValue(ok)
	if errMsg != "" {
		r.ext()[crlPublishErrorPrefix+ipID] = errMsg
	}
}

// CRLPublishResult reads back the CRL publish result for one issuing point.
func (r *RevocationRequest) CRLPublishResult(ipID string) (ok bool, errMsg string, recorded bool) {
	v, recorded := r.Ext[crlPublishStatusPrefix+ipID]
	if !recorded {
		return false, "", false
	}
	return v == statusSuccess, r.Ext[crlPublishErrorPrefix+ipID], true
}

// SetLDAPPublishResult records the directory publishing result for one
// certificate.
func (r *RevocationRequest) SetLDAPPublishResult(serial *big.Int, ok bool) {
	r.ext()[ldapPublishPrefix+AuditSerialPlainHex(serial)] = statusValue(ok)
}

// LDAPPublishResult reads back the directory publishing result for one
// certificate.
func (r *RevocationRequest) LDAPPublishResult(serial *big.Int) (ok bool, recorded bool) {
	v, recorded := r.Ext[ldapPublishPrefix+AuditSerialPlainHex(serial)]
	return v == statusSuccess, recorded
}

// SetCertServiceError records servicing failure detail for one certificate,
// keyed by serial so readers never have to guess which target an error in the
// batch-level list belongs to.
func (r *RevocationRequest) SetCertServiceError(serial *big.Int, errMsg string) {
	r.ext()[certErrorPrefix+AuditSerialPlainHex(serial)] = errMsg
}

// CertServiceError reads back the servicing failure detail recorded for one
// certificate, or the empty string when it was serviced cleanly.
func (r *RevocationRequest) CertServiceError(serial *big.Int) string {
	return r.Ext[certErrorPrefix+AuditSerialPlainHex(serial)]
}

// SetLDAPPublishError records batch-level directory publishing error detail.
func (r *RevocationRequest) SetLDAPPublishError(errMsg string) {
	r.ext()[ldapPublishErrorKey] = errMsg
}

// LDAPPublishError returns batch-level directory publishing error detail, or
// the empty string.
func (r *RevocationRequest) LDAPPublishError() string {
	return r.Ext[ldapPublishErrorKey]
}
