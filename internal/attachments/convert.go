// Package attachments validates uploaded documents and converts them into
// inline previews.
package attachments

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-admin/internal/backend"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// DefaultConcurrency bounds parallel conversions of one batch.
const DefaultConcurrency = 4

const errCancelled = "conversion cancelled"

var (
	ErrEmpty    = fmt.Errorf("%w: file is empty", shared.ErrValidation)
	ErrTooLarge = fmt.Errorf("%w: file is too large", shared.ErrValidation)
	ErrType     = fmt.Errorf("%w: file type is not allowed", shared.ErrValidation)
)

// Upload is one received file.
type Upload struct {
	Name string
	Data []byte
}

// Preview is the result of converting one upload. A failed conversion keeps
// its name and carries Error instead of DataURI.
type Preview struct {
	Name    string `json:"name"`
	MIME    string `json:"mime,omitempty"`
	Size    int    `json:"size"`
	DataURI string `json:"dataUri,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK reports whether the conversion succeeded.
func (p Preview) OK() bool {
	return p.Error == "" && p.DataURI != ""
}

// Policy restricts accepted uploads.
type Policy struct {
	MaxBytes int64
	Allowed  []string
}

// DefaultPolicy accepts common images and PDF up to 5 MiB.
func DefaultPolicy() Policy {
	return Policy{
		MaxBytes: 5 << 20,
		Allowed:  []string{"image/jpeg", "image/png", "image/webp", "image/gif", "application/pdf"},
	}
}

// Check sniffs the content type of u and enforces the policy.
func (p Policy) Check(u Upload) (string, error) {
	if len(u.Data) == 0 {
		return "", ErrEmpty
	}
	if p.MaxBytes > 0 && int64(len(u.Data)) > p.MaxBytes {
		return "", fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, p.MaxBytes)
	}
	mtype := mimetype.Detect(u.Data)
	if len(p.Allowed) > 0 && !slices.ContainsFunc(p.Allowed, mtype.Is) {
		return mtype.String(), fmt.Errorf("%w: %s", ErrType, mtype.String())
	}
	return baseType(mtype.String()), nil
}

// CheckAll validates every upload and keys the complaints as
// "<field>[i]".
func (p Policy) CheckAll(field string, uploads []Upload) shared.FieldErrors {
	out := shared.FieldErrors{}
	for i, u := range uploads {
		if _, err := p.Check(u); err != nil {
			out.Add(fmt.Sprintf("%s[%d]", field, i), strings.TrimPrefix(err.Error(), shared.ErrValidation.Error()+": "))
		}
	}
	return out
}

// Convert turns every upload into a preview concurrently, at most limit at a
// time. It waits for all of them; one failing file never affects the others.
// The returned slice matches the order of uploads. Cancelling ctx stops
// conversions that have not started and returns ctx.Err().
func Convert(ctx context.Context, uploads []Upload, p Policy, limit int) ([]Preview, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	previews := make([]Preview, len(uploads))
	for i, u := range uploads {
		previews[i] = Preview{Name: u.Name, Size: len(u.Data), Error: errCancelled}
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, u := range uploads {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			previews[i] = convertOne(ctx, u, p)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return previews, err
	}
	return previews, nil
}

func convertOne(ctx context.Context, u Upload, p Policy) Preview {
	preview := Preview{Name: u.Name, Size: len(u.Data)}
	if err := ctx.Err(); err != nil {
		preview.Error = errCancelled
		return preview
	}
	mime, err := p.Check(u)
	preview.MIME = mime
	if err != nil {
		preview.Error = strings.TrimPrefix(err.Error(), shared.ErrValidation.Error()+": ")
		return preview
	}
	preview.DataURI = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(u.Data)
	return preview
}

// Succeeded returns the successful previews in order.
func Succeeded(previews []Preview) []Preview {
	out := make([]Preview, 0, len(previews))
	for _, p := range previews {
		if p.OK() {
			out = append(out, p)
		}
	}
	return out
}

// ToFiles converts uploads into multipart parts under field.
func ToFiles(field string, uploads []Upload) []backend.File {
	files := make([]backend.File, 0, len(uploads))
	for _, u := range uploads {
		files = append(files, backend.File{
			Field:       field,
			Name:        u.Name,
			ContentType: baseType(mimetype.Detect(u.Data).String()),
			Data:        u.Data,
		})
	}
	return files
}

func baseType(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		return m[:i]
	}
	return m
}
