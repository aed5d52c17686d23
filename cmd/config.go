package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/letsencrypt/validator/v10"

	"github.com/cms-pki/revproc/config"
	"github.com/cms-pki/revproc/strictyaml"
)

// PKIConfig is the revproc-wide configuration, read from a single JSON or
// YAML file. Fields carry `validate` tags enforced by ReadConfigFile.
//
// Note: NO DEFAULTS are provided.
type PKIConfig struct {
	Authority AuthorityConfig `validate:"required"`
	DB        DBConfig        `validate:"required"`
	Queue     QueueConfig
	Publisher PublisherConfig
	Syslog    SyslogConfig
	Features  map[string]bool `validate:"omitempty"`
}

// AuthorityConfig selects which authority role this deployment plays and, for
// CA deployments, names its CRL issuing points.
type AuthorityConfig struct {
	// Kind is "ca" or "ra".
	Kind string `validate:"required,oneof=ca ra"`
	// IssuingPoints lists the CRL issuing points, master included, for CA
	// deployments.
	IssuingPoints []IssuingPointConfig `validate:"omitempty,dive"`
}

// IssuingPointConfig describes one CRL issuing point.
type IssuingPointConfig struct {
	ID     string `validate:"required"`
	Master bool
}

// DBConfig points at the certificate repository database.
type DBConfig struct {
	// File is the SQLite database path; ":memory:" is accepted.
	File string `validate:"required"`
}

// QueueConfig tunes the request queue.
type QueueConfig struct {
	// RequireApproval parks submissions pending agent approval instead of
	// servicing them inline.
	RequireApproval bool
	// SearchTimeLimit bounds repository filter searches.
	SearchTimeLimit config.Duration
}

// PublisherConfig controls LDAP directory publishing.
type PublisherConfig struct {
	LDAPEnabled bool
}

// SyslogConfig controls the logging destinations and levels. Level values
// are syslog severities, 0 through 7; -1 leaves the output disabled.
type SyslogConfig struct {
	StdoutLevel int `validate:"min=-1,max=7"`
	SyslogLevel int `validate:"min=-1,max=7"`
}

// ReadConfigFile reads the config file at path into out, refusing unknown
// fields, then checks the struct's validate tags. Files ending in .yaml or
// .yml are decoded as YAML; everything else as JSON.
func ReadConfigFile(path string, out any) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %q: %w", path, err)
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = strictyaml.Unmarshal(contents, out)
	default:
		decoder := json.NewDecoder(bytes.NewReader(contents))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(out)
	}
	if err != nil {
		return fmt.Errorf("parsing config file %q: %w", path, err)
	}

	return ValidateConfig(out)
}

// ValidateConfig checks the validate struct tags on an already-decoded
// config.
func ValidateConfig(cfg any) error {
	err := validator.New().Struct(cfg)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return fmt.Errorf("validating config: %s", validationErrs.Error())
		}
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}
