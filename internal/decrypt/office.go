// Package decrypt opens password-protected office packages.
//
// An encrypted .docx or .xlsx is not a ZIP archive but an OLE compound file
// holding an EncryptionInfo and an EncryptedPackage stream (ECMA-376). The
// decrypted payload is the original ZIP package.
package decrypt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"statementqa/internal/domain"
)

var (
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic = []byte("PK\x03\x04")
)

// Encryptable reports whether ext names an office format the adapter handles.
func Encryptable(ext string) bool {
	switch strings.ToLower(ext) {
	case ".docx", ".xlsx", ".xls":
		return true
	}
	return false
}

// IsOLE reports whether data starts with a compound file header.
func IsOLE(data []byte) bool { return bytes.HasPrefix(data, oleMagic) }

// IsZIP reports whether data starts with a ZIP local file header.
func IsZIP(data []byte) bool { return bytes.HasPrefix(data, zipMagic) }

// NeedsPassword reports whether data is an encrypted OOXML package. Legacy
// .xls files are always compound files, so they only count when they carry
// an EncryptedPackage stream.
func NeedsPassword(ext string, data []byte) bool {
	switch strings.ToLower(ext) {
	case ".docx", ".xlsx":
		return IsOLE(data)
	case ".xls":
		return IsOLE(data) && hasEncryptedPackage(data)
	}
	return false
}

// Decrypt returns the bytes the extractor should read.
//
// Non-office formats and unencrypted files pass through unchanged. An
// encrypted package without a password fails with PasswordRequired.
func Decrypt(ext string, data []byte, password string) ([]byte, error) {
	if !Encryptable(ext) {
		return data, nil
	}
	if password == "" {
		if NeedsPassword(ext, data) {
			return nil, &domain.DecryptionError{Kind: domain.PasswordRequired}
		}
		return data, nil
	}
	if !IsOLE(data) {
		return data, nil
	}
	if !hasEncryptedPackage(data) {
		if strings.EqualFold(ext, ".xls") {
			return data, nil
		}
		return nil, &domain.DecryptionError{
			Kind: domain.CorruptContainer,
			Err:  errors.New("compound file has no EncryptedPackage stream"),
		}
	}

	plain, err := decryptPackage(data, password)
	if err != nil {
		kind := domain.CorruptContainer
		if errors.Is(err, excelize.ErrWorkbookPassword) {
			kind = domain.WrongPassword
		}
		return nil, &domain.DecryptionError{Kind: kind, Err: err}
	}
	if !IsZIP(plain) {
		return nil, &domain.DecryptionError{
			Kind: domain.WrongPassword,
			Err:  errors.New("decrypted payload is not an office package"),
		}
	}
	return plain, nil
}

// Encrypt protects a ZIP package with agile encryption. Used to produce
// fixtures and by callers that re-export protected files.
func Encrypt(pkg []byte, password string) ([]byte, error) {
	if !IsZIP(pkg) {
		return nil, errors.New("encrypt: input is not an office package")
	}
	return excelize.Encrypt(pkg, &excelize.Options{Password: password})
}

func decryptPackage(data []byte, password string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed encrypted package: %v", r)
		}
	}()
	return excelize.Decrypt(data, &excelize.Options{Password: password})
}

// hasEncryptedPackage looks for the UTF-16LE stream name inside the OLE
// directory. BIFF workbooks store their data in a "Workbook" stream instead.
func hasEncryptedPackage(data []byte) bool {
	name := []byte("E\x00n\x00c\x00r\x00y\x00p\x00t\x00e\x00d\x00P\x00a\x00c\x00k\x00a\x00g\x00e\x00")
	return bytes.Contains(data, name)
}
