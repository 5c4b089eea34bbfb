package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"statementqa/internal/domain"
)

// ExtractPDF returns one Document per page that carries text.
func ExtractPDF(ctx context.Context, path, password string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	tried := false
	r, err := pdf.NewReaderEncrypted(f, info.Size(), func() string {
		// Offer the password once; an empty string ends the attempts.
		if tried {
			return ""
		}
		tried = true
		return password
	})
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			kind := domain.WrongPassword
			if password == "" {
				kind = domain.PasswordRequired
			}
			return nil, &domain.DecryptionError{Kind: kind, Err: err}
		}
		return nil, err
	}

	source := filepath.Base(path)
	var docs []domain.Document
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		docs = append(docs, domain.Document{
			Content: text,
			Metadata: map[string]any{
				"source": source,
				"page":   i - 1,
			},
		})
	}
	return docs, nil
}

// pageText guards against the panics the content-stream interpreter raises
// on malformed operators.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	return p.GetPlainText(nil)
}
