package services

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"
	"aadhaar-seva/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func (e *env) documentService(t *testing.T, maxBytes int64) *DocumentService {
	return NewDocumentService(
		repositories.NewDocumentRepository(e.db),
		e.appointments,
		config.UploadConfig{Dir: t.TempDir(), MaxBytes: maxBytes},
	)
}

func upload(content []byte) *UploadInput {
	return &UploadInput{
		DocumentType: "proof_of_address",
		FileName:     "../../bill.png",
		Size:         int64(len(content)),
		Content:      bytes.NewReader(content),
	}
}

func TestUploadStoresFile(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.documentService(t, 1<<20)
	ctx := context.Background()

	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 100)...)
	doc, err := svc.Upload(ctx, e.citizen(), upload(content))
	require.NoError(t, err)

	assert.Equal(t, "image/png", doc.MimeType)
	assert.Equal(t, "bill.png", doc.FileName)
	assert.Equal(t, int64(len(content)), doc.SizeBytes)
	assert.Equal(t, models.DocumentPending, doc.Status)
	assert.True(t, strings.HasSuffix(doc.FilePath, ".png"))

	stored, err := os.ReadFile(doc.FilePath)
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	mine, err := svc.ListMine(ctx, e.citizen())
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestUploadRejectsBadFiles(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.documentService(t, 64)
	ctx := context.Background()

	_, err := svc.Upload(ctx, e.citizen(), upload([]byte("just some text, not a document")))
	assert.ErrorIs(t, err, ErrDocumentType)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 100)...)
	_, err = svc.Upload(ctx, e.citizen(), upload(big))
	assert.ErrorIs(t, err, ErrDocumentTooLarge)

	_, err = svc.Upload(ctx, e.citizen(), upload(nil))
	assert.ErrorIs(t, err, ErrDocumentEmpty)

	in := upload(pngHeader)
	in.DocumentType = "selfie"
	_, err = svc.Upload(ctx, e.citizen(), in)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	var count int64
	e.db.Model(&models.Document{}).Count(&count)
	assert.Zero(t, count)
}

func TestReviewAndDeleteDocument(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.documentService(t, 1<<20)
	ctx := context.Background()

	first, err := svc.Upload(ctx, e.citizen(), upload(pngHeader))
	require.NoError(t, err)
	second, err := svc.Upload(ctx, e.citizen(), upload(pngHeader))
	require.NoError(t, err)

	_, err = svc.Review(ctx, 999, first.ID, &ReviewInput{Status: models.DocumentPending})
	assert.ErrorIs(t, err, ErrInvalidReviewOutcome)

	reviewed, err := svc.Review(ctx, 999, first.ID, &ReviewInput{Status: models.DocumentVerified})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentVerified, reviewed.Status)

	_, err = svc.Review(ctx, 999, first.ID, &ReviewInput{Status: models.DocumentRejected})
	assert.ErrorIs(t, err, ErrDocumentReviewed)
	_, err = svc.Review(ctx, 999, 4242, &ReviewInput{Status: models.DocumentRejected})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, e.citizen(), first.ID), ErrDocumentReviewed)

	stranger := Actor{UserID: 3, RecordID: 9999, Role: models.RoleUser}
	assert.ErrorIs(t, svc.Delete(ctx, stranger, second.ID), ErrDocumentNotFound)

	require.NoError(t, svc.Delete(ctx, e.citizen(), second.ID))
	_, err = os.Stat(second.FilePath)
	assert.True(t, os.IsNotExist(err))
}
