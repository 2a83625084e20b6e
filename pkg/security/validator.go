package security

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// sqliteMagic is the 16 byte header every SQLite 3 database file starts with.
var sqliteMagic = []byte("SQLite format 3\x00")

// maxIdentifierLength bounds table names accepted from flags and config.
const maxIdentifierLength = 64

// Validator checks layout backups before they are opened as a source database
type Validator struct {
	maxBackupSize int64
}

// NewValidator creates a new backup validator
func NewValidator(maxBackupSize int64) *Validator {
	slog.Info("security_validator_init", "max_backup_size_mb", maxBackupSize/1024/1024)

	return &Validator{maxBackupSize: maxBackupSize}
}

// ValidateIdentifier checks that name is safe to interpolate into SQL as a table name.
// Only ASCII letters, digits and underscores are accepted and the first rune must not be a digit.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("security: empty identifier")
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("security: identifier too long: %d > %d", len(name), maxIdentifierLength)
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			slog.Error("security_identifier_rejected", "identifier", name, "position", i)
			return fmt.Errorf("security: invalid identifier %q", name)
		}
	}
	if strings.HasPrefix(strings.ToLower(name), "sqlite_") {
		return fmt.Errorf("security: reserved identifier %q", name)
	}
	return nil
}

// ValidatePath checks for path traversal in a backup key before it is
// used as a file name inside the work directory
func (v *Validator) ValidatePath(key string) error {
	if key == "" {
		return fmt.Errorf("security: empty backup key")
	}

	// Reject absolute paths
	if filepath.IsAbs(key) {
		slog.Error("security_path_validation_failed", "path", key, "reason", "absolute_path")
		return fmt.Errorf("security: absolute path not allowed: %s", key)
	}

	clean := filepath.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		slog.Error("security_path_validation_failed", "path", key, "reason", "path_traversal")
		return fmt.Errorf("security: path traversal detected: %s", key)
	}

	return nil
}

// ValidateFileSize checks if a backup exceeds the max backup size
func (v *Validator) ValidateFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("security: empty backup")
	}
	if size > v.maxBackupSize {
		slog.Error("security_backup_size_exceeded",
			"backup_size_mb", size/1024/1024,
			"max_backup_size_mb", v.maxBackupSize/1024/1024)
		return fmt.Errorf("security: backup size %d exceeds max %d", size, v.maxBackupSize)
	}
	return nil
}

// ValidateSQLiteHeader checks that the file at path is a SQLite 3 database
func (v *Validator) ValidateSQLiteHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("security: open backup: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		slog.Error("security_backup_header_unreadable", "path", path, "error", err)
		return fmt.Errorf("security: backup too short to be a database: %w", err)
	}
	if !bytes.Equal(header, sqliteMagic) {
		slog.Error("security_backup_not_sqlite", "path", path)
		return fmt.Errorf("security: %s is not a SQLite database", path)
	}

	slog.Info("security_backup_validated", "path", path)
	return nil
}
