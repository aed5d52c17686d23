package revocation

import (
	"encoding/asn1"
	"fmt"
	"time"
)

// CRL entry extension OIDs, from RFC 5280 §5.3.
var (
	reasonCodeOID     = asn1.ObjectIdentifier{2, 5, 29, 21}
	invalidityDateOID = asn1.ObjectIdentifier{2, 5, 29, 24}
)

// Extension is one DER-encoded CRL entry extension.
type Extension struct {
	ID    asn1.ObjectIdentifier
	Value []byte
}

// EntryExtensions is the per-certificate CRL entry extension bundle attached
// to a revocation. The reason code extension is always present; the
// invalidity date extension is present only when an invalidity date was
// supplied with the request. Immutable once built: one bundle is shared by
// reference across every certificate in a batch.
type EntryExtensions struct {
	reasonCode     Extension
	invalidityDate *Extension
}

// BuildEntryExtensions constructs the extension bundle for the given reason.
// A nil invalidityDate omits the invalidity date extension entirely.
func BuildEntryExtensions(reason Reason, invalidityDate *time.Time) (*EntryExtensions, error) {
	reasonDER, err := asn1.Marshal(asn1.Enumerated(reason))
	if err != nil {
		return nil, fmt.Errorf("encoding reason code extension: %w", err)
	}

	exts := &EntryExtensions{
		reasonCode: Extension{ID: reasonCodeOID, Value: reasonDER},
	}

	if invalidityDate != nil {
		dateDER, err := asn1.MarshalWithParams(invalidityDate.UTC(), "generalized")
		if err != nil {
			return nil, fmt.Errorf("encoding invalidity date extension: %w", err)
		}
		exts.invalidityDate = &Extension{ID: invalidityDateOID, Value: dateDER}
	}

	return exts, nil
}

// ReasonCode returns the reason code extension.
func (e *EntryExtensions) ReasonCode() Extension {
	return e.reasonCode
}

// InvalidityDate returns the invalidity date extension and whether it is
// present.
func (e *EntryExtensions) InvalidityDate() (Extension, bool) {
	if e.invalidityDate == nil {
		return Extension{}, false
	}
	return *e.invalidityDate, true
}

// List returns all extensions present in the bundle, reason code first.
func (e *EntryExtensions) List() []Extension {
	out := []Extension{e.reasonCode}
	if e.invalidityDate != nil {
		out = append(out, *e.invalidityDate)
	}
	return out
}

// DecodeReasonCode parses a reason code extension value back to its Reason.
// Used by consumers that read extension bundles off completed requests.
func DecodeReasonCode(ext Extension) (Reason, error) {
	if !ext.ID.Equal(reasonCodeOID) {
		return 0, fmt.Errorf("extension %s is not a reason code extension", ext.ID)
	}
	var enum asn1.Enumerated
	_, err := asn1.Unmarshal(ext.Value, &enum)
	if err != nil {
		return 0, fmt.Errorf("decoding reason code extension: %w", err)
	}
	return Reason(enum), nil
}
