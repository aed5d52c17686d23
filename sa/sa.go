// Package sa implements the certificate repository against a relational
// database via GORM. It provides both the read side the processing core
// selects targets from and the write side the queue's servicer flips status
// through.
package sa

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/jmhodges/clock"
	"golang.org/x/crypto/ocsp"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cms-pki/revproc/core"
	rerrors "github.com/cms-pki/revproc/errors"
	blog "github.com/cms-pki/revproc/log"
	"github.com/cms-pki/revproc/revocation"
)

// CertRecord is the database row backing one certificate.
type CertRecord struct {
	ID uint `gorm:"primaryKey"`
	// SerialHex is the lowercase hex serial without a 0x prefix, the
	// repository's canonical lookup key.
	SerialHex           string `gorm:"uniqueIndex;not null"`
	Subject             string `gorm:"not null"`
	Issuer              string
	Status              string `gorm:"index;not null"`
	RevokedReason       int64
	RevokedAt           *time.Time
	SystemCert          bool
	EnrollmentRequestID string `gorm:"index"`
	NotBefore           time.Time
	NotAfter            time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName gives the table its legacy name.
func (CertRecord) TableName() string {
	return "cert_records"
}

// Database is a GORM-backed core.CertificateRepository and queue status
// writer.
type Database struct {
	db  *gorm.DB
	log blog.Logger
	clk clock.Clock
}

// New wraps an open gorm handle and migrates the schema.
func New(db *gorm.DB, logger blog.Logger, clk clock.Clock) (*Database, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	if err := db.AutoMigrate(&CertRecord{}); err != nil {
		return nil, rerrors.InternalServerError("migrating cert_records table: %s", err)
	}
	return &Database{db: db, log: logger, clk: clk}, nil
}

// NewSQLite opens (or creates) a SQLite database at path and returns a
// migrated Database. Use ":memory:" for tests.
func NewSQLite(path string, logger blog.Logger, clk clock.Clock) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, rerrors.InternalServerError("opening sqlite database %q: %s", path, err)
	}
	return New(db, logger, clk)
}

func serialKey(serial *big.Int) string {
	return serial.Text(16)
}

func toTarget(rec *CertRecord) (*core.CertificateTarget, error) {
	serial, ok := new(big.Int).SetString(rec.SerialHex, 16)
	if !ok {
		return nil, rerrors.InternalServerError("corrupt serial %q in cert record %d", rec.SerialHex, rec.ID)
	}
	return &core.CertificateTarget{
		Serial:              serial,
		Subject:             rec.Subject,
		Status:              core.CertStatus(rec.Status),
		RevokedReason:       revocation.Reason(rec.RevokedReason),
		SystemCert:          rec.SystemCert,
		EnrollmentRequestID: rec.EnrollmentRequestID,
	}, nil
}

// AddCertificate inserts a new record, defaulting to VALID status when the
// target carries none.
func (d *Database) AddCertificate(ctx context.Context, target *core.CertificateTarget, notBefore, notAfter time.Time) error {
	rec := CertRecord{
		SerialHex:           serialKey(target.Serial),
		Subject:             target.Subject,
		Status:              string(core.StatusValid),
		RevokedReason:       int64(target.RevokedReason),
		SystemCert:          target.SystemCert,
		EnrollmentRequestID: target.EnrollmentRequestID,
		NotBefore:           notBefore,
		NotAfter:            notAfter,
	}
	if target.Status != "" {
		rec.Status = string(target.Status)
	}
	result := d.db.WithContext(ctx).Create(&rec)
	if result.Error != nil {
		return rerrors.InternalServerError("inserting cert record for serial %s: %s",
			core.AuditSerialHex(target.Serial), result.Error)
	}
	return nil
}

// FindBySerial implements core.CertificateRepository.
func (d *Database) FindBySerial(ctx context.Context, serial *big.Int) (*core.CertificateTarget, error) {
	var rec CertRecord
	result := d.db.WithContext(ctx).Where("serial_hex = ?", serialKey(serial)).First(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, rerrors.NotFoundError("no certificate record for serial %s", core.AuditSerialHex(serial))
		}
		return nil, rerrors.InternalServerError("querying serial %s: %s", core.AuditSerialHex(serial), result.Error)
	}
	return toTarget(&rec)
}

// SearchByFilter implements core.CertificateRepository. Filters are
// comma-separated key=value terms over the keys status, subject, issuer and
// enrollmentRequestID; subject and issuer match as substrings, the rest
// exactly. timeLimit bounds the query via a derived context deadline.
func (d *Database) SearchByFilter(ctx context.Context, filter string, maxResults int, timeLimit time.Duration) ([]*core.CertificateTarget, error) {
	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}

	query := d.db.WithContext(ctx).Model(&CertRecord{})
	for _, term := range strings.Split(filter, ",") {
		k, v, found := strings.Cut(term, "=")
		if !found || v == "" {
			return nil, rerrors.MalformedError("malformed filter term %q", term)
		}
		switch k {
		case "status":
			query = query.Where("status = ?", v)
		case "subject":
			query = query.Where("subject LIKE ?", "%"+v+"%")
		case "issuer":
			query = query.Where("issuer LIKE ?", "%"+v+"%")
		case "enrollmentRequestID":
			query = query.Where("enrollment_request_id = ?", v)
		default:
			return nil, rerrors.MalformedError("unsupported filter key %q", k)
		}
	}
	if maxResults > 0 {
		query = query.Limit(maxResults)
	}

	var records []CertRecord
	result := query.Order("id").Find(&records)
	if result.Error != nil {
		return nil, rerrors.InternalServerError("searching with filter %q: %s", filter, result.Error)
	}

	targets := make([]*core.CertificateTarget, 0, len(records))
	for i := range records {
		target, err := toTarget(&records[i])
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// MarkRevoked flips one record into a revoked state. Valid records become
// REVOKED; expired records become REVOKED_EXPIRED. Records already in a
// revoked state are refused so a lost race surfaces instead of silently
// rewriting the reason.
func (d *Database) MarkRevoked(ctx context.Context, serial *big.Int, reason revocation.Reason) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec CertRecord
		result := tx.Where("serial_hex = ?", serialKey(serial)).First(&rec)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return rerrors.NotFoundError("no certificate record for serial %s", core.AuditSerialHex(serial))
			}
			return rerrors.InternalServerError("querying serial %s: %s", core.AuditSerialHex(serial), result.Error)
		}
		if core.CertStatus(rec.Status).Revoked() {
			return rerrors.AlreadyRevokedError("serial %s is already revoked", core.AuditSerialHex(serial))
		}

		status := core.StatusRevoked
		if core.CertStatus(rec.Status) == core.StatusExpired {
			status = core.StatusRevokedExpired
		}
		now := d.clk.Now()
		result = tx.Model(&rec).Updates(map[string]any{
			"status":         string(status),
			"revoked_reason": int64(reason),
			"revoked_at":     &now,
		})
		if result.Error != nil {
			return rerrors.InternalServerError("revoking serial %s: %s", core.AuditSerialHex(serial), result.Error)
		}
		d.log.Infof("marked serial %s %s, reason %d", core.AuditSerialHex(serial), status, reason)
		return nil
	})
}

// MarkUnrevoked takes one record off hold. The record must be revoked with
// reason certificateHold; REVOKED becomes VALID and REVOKED_EXPIRED becomes
// EXPIRED.
func (d *Database) MarkUnrevoked(ctx context.Context, serial *big.Int) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec CertRecord
		result := tx.Where("serial_hex = ?", serialKey(serial)).First(&rec)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return rerrors.NotFoundError("no certificate record for serial %s", core.AuditSerialHex(serial))
			}
			return rerrors.InternalServerError("querying serial %s: %s", core.AuditSerialHex(serial), result.Error)
		}
		if !core.CertStatus(rec.Status).Revoked() || rec.RevokedReason != int64(ocsp.CertificateHold) {
			return rerrors.NotOnHoldError("serial %s is not revoked with reason certificateHold", core.AuditSerialHex(serial))
		}

		status := core.StatusValid
		if core.CertStatus(rec.Status) == core.StatusRevokedExpired {
			status = core.StatusExpired
		}
		result = tx.Model(&rec).Updates(map[string]any{
			"status":         string(status),
			"revoked_reason": int64(0),
			"revoked_at":     nil,
		})
		if result.Error != nil {
			return rerrors.InternalServerError("unrevoking serial %s: %s", core.AuditSerialHex(serial), result.Error)
		}
		d.log.Infof("marked serial %s %s, off hold", core.AuditSerialHex(serial), status)
		return nil
	})
}
