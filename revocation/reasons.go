// Package revocation provides the revocation reason codes shared across the
// processing core, and the CRL entry extensions attached to revoked
// certificates.
package revocation

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/ocsp"
)

// Reason is used to specify a certificate revocation reason
type Reason int64

// ReasonToString provides a map from reason code to string
var ReasonToString = map[Reason]string{
	ocsp.Unspecified:          "unspecified",
	ocsp.KeyCompromise:        "keyCompromise",
	ocsp.CACompromise:         "cACompromise",
	ocsp.AffiliationChanged:   "affiliationChanged",
	ocsp.Superseded:           "superseded",
	ocsp.CessationOfOperation: "cessationOfOperation",
	ocsp.CertificateHold:      "certificateHold",
	// 7 is unused
	ocsp.RemoveFromCRL:      "removeFromCRL",
	ocsp.PrivilegeWithdrawn: "privilegeWithdrawn",
	ocsp.AACompromise:       "aACompromise",
}

// AgentAllowedReasons contains the subset of Reasons which agents of the
// authority may use in revocation requests submitted through the processor.
var AgentAllowedReasons = map[Reason]struct{}{
	ocsp.Unspecified:          {},
	ocsp.KeyCompromise:        {},
	ocsp.CACompromise:         {},
	ocsp.AffiliationChanged:   {},
	ocsp.Superseded:           {},
	ocsp.CessationOfOperation: {},
	ocsp.CertificateHold:      {},
	ocsp.RemoveFromCRL:        {},
	ocsp.PrivilegeWithdrawn:   {},
}

// EndEntityAllowedReasons contains the subset of Reasons which end-entity
// (self-service) requesters may use. Subscribers may not place certificates
// on hold or take them off hold; those paths require an agent.
var EndEntityAllowedReasons = map[Reason]struct{}{
	ocsp.Unspecified:          {},
	ocsp.KeyCompromise:        {},
	ocsp.AffiliationChanged:   {},
	ocsp.Superseded:           {},
	ocsp.CessationOfOperation: {},
}

// StringToReason resolves a reason name (as found in ReasonToString) to its
// code.
func StringToReason(s string) (Reason, error) {
	for code, name := range ReasonToString {
		if name == s {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown revocation reason %q", s)
}

// RoutesToUnrevocation reports whether a request carrying this reason must be
// handled by the unrevocation (off-hold) path regardless of the entry point
// it arrived through.
func RoutesToUnrevocation(r Reason) bool {
	return r == ocsp.RemoveFromCRL
}

// AllowedReasonsMessage renders a sorted list of the reasons in the given
// set, for use in user-facing error messages.
func AllowedReasonsMessage(allowed map[Reason]struct{}) string {
	var codes []Reason
	for reason := range allowed {
		codes = append(codes, reason)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	var entries []string
	for _, reason := range codes {
		entries = append(entries, fmt.Sprintf("%s (%d)", ReasonToString[reason], reason))
	}
	return strings.Join(entries, ", ")
}
