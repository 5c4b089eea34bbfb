package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"statementqa/internal/chunker"
	"statementqa/internal/decrypt"
	"statementqa/internal/domain"
	"statementqa/internal/embedding/hashing"
	"statementqa/internal/extractor"
	"statementqa/internal/extractor/extractortest"
	"statementqa/internal/logging"
	"statementqa/internal/summarizer"
)

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body bytes.Buffer
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func xlsxBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Date", "Description", "Amount"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"2024-03-01", "Food", 500}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"2024-03-02", "Rent", 900}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

type failingEmbedder struct{ err error }

func (f failingEmbedder) Name() string { return "failing" }
func (f failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, f.err
}
func (f failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, f.err
}

func newPipeline(t *testing.T, emb domain.Embedder) (*Pipeline, string) {
	t.Helper()
	if emb == nil {
		var err error
		emb, err = hashing.NewEmbedder(128)
		require.NoError(t, err)
	}
	root := t.TempDir()
	logger := logging.Discard()
	p := New(extractor.New(logger), chunker.Default(), emb,
		WithSummarizer(summarizer.NewFrequencySummarizer()),
		WithTempRoot(root),
		WithLogger(logger),
	)
	return p, root
}

func assertCleaned(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directories left behind")
}

func TestIngest_DOCX(t *testing.T) {
	p, root := newPipeline(t, nil)
	file := domain.UploadedFile{Name: "March.DOCX", Data: docxBytes(t,
		"Statement period March 2024.",
		"Total spending: $500 on Food.",
		"Rent payment $900 to Landlord.",
	)}

	res, err := p.Ingest(context.Background(), file, "")
	require.NoError(t, err)
	assert.Equal(t, "March.DOCX", res.FileName)
	assert.Equal(t, 1, res.Documents)
	assert.GreaterOrEqual(t, res.Chunks, 1)
	assert.Equal(t, res.Chunks, res.Index.Len())
	assert.NotEmpty(t, res.Overview)

	hits, err := res.Index.Retrieve(context.Background(), "food spending", 4)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Chunk.Text, "$500 on Food")
	assert.Equal(t, "N/A", hits[0].Chunk.Metadata["page"])

	assertCleaned(t, root)
}

func TestIngest_EncryptedWorkbook(t *testing.T) {
	p, root := newPipeline(t, nil)
	enc, err := decrypt.Encrypt(xlsxBytes(t), "s3cret")
	require.NoError(t, err)
	file := domain.UploadedFile{Name: "ledger.xlsx", Data: enc}

	res, err := p.Ingest(context.Background(), file, "s3cret")
	require.NoError(t, err)
	hits, err := res.Index.Retrieve(context.Background(), "rent", 1)
	require.NoError(t, err)
	assert.Contains(t, hits[0].Chunk.Text, "Rent\t900")
	assert.Equal(t, "Sheet1!A1:C3", domain.Location(hits[0].Chunk.Metadata))
	assert.Equal(t, "ledger.xlsx", hits[0].Chunk.Metadata["source"])
	assertCleaned(t, root)

	_, err = p.Ingest(context.Background(), file, "wrong")
	require.Error(t, err)
	assert.True(t, domain.IsPasswordError(err))
	var de *domain.DecryptionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.WrongPassword, de.Kind)
	assertCleaned(t, root)

	_, err = p.Ingest(context.Background(), file, "")
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.PasswordRequired, de.Kind)
	assertCleaned(t, root)
}

func TestIngest_PDF(t *testing.T) {
	p, root := newPipeline(t, nil)
	file := domain.UploadedFile{Name: "March.pdf", Data: extractortest.PDF(
		"Statement period March 2024.",
		"Total spending: $500 on Food.\nRent payment $900 to Landlord.",
	)}

	res, err := p.Ingest(context.Background(), file, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Documents)

	hits, err := res.Index.Retrieve(context.Background(), "rent landlord", 1)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Chunk.Text, "Rent payment $900")
	assert.Equal(t, 1, hits[0].Chunk.Metadata["page"])
	assert.Equal(t, "March.pdf", hits[0].Chunk.Metadata["source"])
	assertCleaned(t, root)
}

func TestIngest_EncryptedPDF(t *testing.T) {
	p, root := newPipeline(t, nil)
	file := domain.UploadedFile{Name: "locked.pdf", Data: extractortest.EncryptedPDF("s3cret", "Fees $12.")}

	res, err := p.Ingest(context.Background(), file, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Documents)

	var de *domain.DecryptionError
	_, err = p.Ingest(context.Background(), file, "")
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.PasswordRequired, de.Kind)

	_, err = p.Ingest(context.Background(), file, "nope")
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.WrongPassword, de.Kind)
	assertCleaned(t, root)
}

func TestIngest_XLS(t *testing.T) {
	p, root := newPipeline(t, nil)
	data := extractortest.XLS(extractortest.Sheet{Name: "Sheet1", Rows: [][]any{
		{"Category", "Amount"},
		{"Food", 500},
	}})

	res, err := p.Ingest(context.Background(), domain.UploadedFile{Name: "legacy.xls", Data: data}, "")
	require.NoError(t, err)
	hits, err := res.Index.Retrieve(context.Background(), "food", 1)
	require.NoError(t, err)
	assert.Equal(t, "Category\tAmount\nFood\t500", hits[0].Chunk.Text)
	assert.Equal(t, "legacy.xls", hits[0].Chunk.Metadata["source"])

	enc, err := decrypt.Encrypt(xlsxBytes(t), "s3cret")
	require.NoError(t, err)
	_, err = p.Ingest(context.Background(), domain.UploadedFile{Name: "locked.xls", Data: enc}, "")
	var de *domain.DecryptionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.PasswordRequired, de.Kind)
	assertCleaned(t, root)
}

func TestIngest_Unsupported(t *testing.T) {
	p, root := newPipeline(t, nil)

	_, err := p.Ingest(context.Background(), domain.UploadedFile{Name: "notes.txt", Data: []byte("hi")}, "")
	var ue *domain.UnsupportedFormatError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, ".txt", ue.Ext)
	assertCleaned(t, root)
}

func TestIngest_NoText(t *testing.T) {
	p, root := newPipeline(t, nil)

	_, err := p.Ingest(context.Background(), domain.UploadedFile{Name: "blank.docx", Data: docxBytes(t)}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoExtractableText)
	var ee *domain.ExtractionError
	assert.True(t, errors.As(err, &ee))
	assertCleaned(t, root)
}

func TestIngest_EmbedderFailure(t *testing.T) {
	boom := errors.New("embedding quota exceeded")
	p, root := newPipeline(t, failingEmbedder{err: boom})

	_, err := p.Ingest(context.Background(), domain.UploadedFile{Name: "a.docx", Data: docxBytes(t, "Fees $12.")}, "")
	assert.ErrorIs(t, err, boom)
	assertCleaned(t, root)
}

func TestIngest_Concurrent(t *testing.T) {
	p, root := newPipeline(t, nil)
	data := docxBytes(t, "Fuel $60.", "Groceries $42.")

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = p.Ingest(context.Background(), domain.UploadedFile{Name: "s.docx", Data: data}, "")
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assertCleaned(t, root)
}
