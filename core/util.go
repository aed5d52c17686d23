package core

import (
	"fmt"
	"math/big"
	"strings"

	rerrors "github.com/cms-pki/revproc/errors"
)

// EmptySerial is the sentinel recorded in audit events when no serial number
// is available for the operation (e.g. a batch-level failure before any
// target was resolved).
const EmptySerial = "(empty)"

// AuditSerialHex renders a serial number for audit records as 0x-prefixed
// lowercase hex. This matches the normalization used by the agent-facing
// revocation entry points.
//
// The legacy system had two divergent serial normalizations; see
// AuditSerialPlainHex for the other. Which one a deployment emits is selected
// by the PlainHexAuditSerials feature flag, not hardcoded.
func AuditSerialHex(serial *big.Int) string {
	if serial == nil {
		return EmptySerial
	}
	return fmt.Sprintf("0x%x", serial)
}

// AuditSerialPlainHex renders a serial number for audit records as bare
// lowercase hex with no prefix. This matches the normalization used by the
// TPS-facing revocation entry points.
func AuditSerialPlainHex(serial *big.Int) string {
	if serial == nil {
		return EmptySerial
	}
	return fmt.Sprintf("%x", serial)
}

// ParseSerial parses a caller-supplied serial number string: 0x or 0X
// prefixed strings are read as hex, everything else as decimal.
func ParseSerial(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, rerrors.MalformedError("empty serial number")
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}

	serial, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, rerrors.MalformedError("invalid serial number %q", s)
	}
	if serial.Sign() < 0 {
		return nil, rerrors.MalformedError("negative serial number %q", s)
	}
	return serial, nil
}
