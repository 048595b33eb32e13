package attachments

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
)

func TestConvertIsolatesFailures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	uploads := []Upload{
		{Name: "front.png", Data: pngBytes},
		{Name: "notes.txt", Data: []byte("plain text is not allowed")},
		{Name: "empty.pdf"},
		{Name: "invoice.pdf", Data: pdfBytes},
	}
	previews, err := Convert(context.Background(), uploads, DefaultPolicy(), 2)
	require.NoError(t, err)
	require.Len(t, previews, 4)

	require.Equal(t, "front.png", previews[0].Name)
	require.Equal(t, "image/png", previews[0].MIME)
	require.True(t, strings.HasPrefix(previews[0].DataURI, "data:image/png;base64,"))

	require.False(t, previews[1].OK())
	require.Contains(t, previews[1].Error, "file type is not allowed")
	require.Equal(t, "file is empty", previews[2].Error)

	require.True(t, previews[3].OK())
	require.Equal(t, "application/pdf", previews[3].MIME)
	require.Len(t, Succeeded(previews), 2)
}

func TestConvertRejectsOversizedFiles(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxBytes = 16
	previews, err := Convert(context.Background(), []Upload{{Name: "big.pdf", Data: pdfBytes}}, policy, 0)
	require.NoError(t, err)
	require.Contains(t, previews[0].Error, "too large")
}

func TestConvertHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	previews, err := Convert(ctx, []Upload{{Name: "a.png", Data: pngBytes}}, DefaultPolicy(), 1)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, previews, 1)
	require.Equal(t, Preview{Name: "a.png", Size: len(pngBytes), Error: "conversion cancelled"}, previews[0])
}

func TestCheckAllKeysByIndex(t *testing.T) {
	errs := DefaultPolicy().CheckAll("documents", []Upload{{Name: "ok.pdf", Data: pdfBytes}, {Name: "bad.txt", Data: []byte("x")}})
	require.Len(t, errs, 1)
	require.Contains(t, errs["documents[1]"], "not allowed")
}

func TestToFilesSniffsContentType(t *testing.T) {
	files := ToFiles("receipts", []Upload{{Name: "r.pdf", Data: pdfBytes}})
	require.Len(t, files, 1)
	require.Equal(t, "receipts", files[0].Field)
	require.Equal(t, "application/pdf", files[0].ContentType)
}

func multipartRequest(t *testing.T, target string, files map[string][]byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, data := range files {
		part, err := w.CreateFormFile(FormField, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestPreviewHandler(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, DefaultPolicy(), 1<<20, 2).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartRequest(t, "/previews", map[string][]byte{"a.png": pngBytes, "b.txt": []byte("nope")}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp previewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Previews, 2)
	require.Equal(t, 1, resp.Failed)
}

func TestPreviewHandlerRequiresFiles(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, DefaultPolicy(), 1<<20, 2).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartRequest(t, "/previews", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
