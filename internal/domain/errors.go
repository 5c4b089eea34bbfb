package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyIndex is returned when an index would be built over zero chunks.
	ErrEmptyIndex = errors.New("cannot build retrieval index from zero chunks")

	// ErrNoExtractableText marks an extraction that produced no documents.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrNoDocument is returned by queries issued before a statement was loaded.
	ErrNoDocument = errors.New("Please upload a financial statement to begin.")
)

// UnsupportedFormatError reports an extension outside pdf, docx, xlsx and xls.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unsupported file type: %s", e.Ext)
}

// DecryptionKind distinguishes the ways decryption can fail.
type DecryptionKind int

const (
	CorruptContainer DecryptionKind = iota
	PasswordRequired
	WrongPassword
)

func (k DecryptionKind) String() string {
	switch k {
	case PasswordRequired:
		return "password required"
	case WrongPassword:
		return "wrong password"
	default:
		return "corrupt container"
	}
}

// DecryptionError wraps a failure to open a protected file.
type DecryptionError struct {
	Kind DecryptionKind
	Err  error
}

func (e *DecryptionError) Error() string {
	msg := "Decryption failed (" + e.Kind.String() + "). Check password or file integrity."
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// ExtractionError wraps an I/O or parser fault raised while reading a document.
type ExtractionError struct {
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CredentialMissingError is fatal at startup.
type CredentialMissingError struct {
	EnvVar string
}

func (e *CredentialMissingError) Error() string {
	return fmt.Sprintf("API Key not found! Set %s in the environment or a .env file.", e.EnvVar)
}

// CompletionError wraps a failed LLM call after retries were exhausted.
type CompletionError struct {
	Attempts int
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// SearchError is a non-fatal web search failure.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("web search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// ChartParseError is a non-fatal failure to read an embedded chart block.
type ChartParseError struct {
	Err error
}

func (e *ChartParseError) Error() string {
	return fmt.Sprintf("could not parse chart block: %v", e.Err)
}

func (e *ChartParseError) Unwrap() error { return e.Err }

// IsPasswordError reports whether err stems from a missing or wrong password.
func IsPasswordError(err error) bool {
	var de *DecryptionError
	if errors.As(err, &de) {
		return de.Kind == PasswordRequired || de.Kind == WrongPassword
	}
	return false
}
