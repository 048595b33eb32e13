// Package exports turns a list filter state into a backend spreadsheet export
// and a download filename.
package exports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-admin/internal/backend"
	"github.com/odyssey-erp/odyssey-admin/internal/listview"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

const extension = ".xlsx"

// Downloader fetches an export blob from the backend.
type Downloader interface {
	Export(ctx context.Context, path string, params map[string]string) (backend.Download, error)
}

// File is a ready-to-send export.
type File struct {
	Name        string
	ContentType string
	Body        []byte
	RequestID   string
}

// Request describes one export.
type Request struct {
	// Entity names the list, e.g. "expenses". It prefixes the filename.
	Entity string
	Path   string
	Filter listview.FilterState
	// Params are the backend query parameters derived from Filter.
	Params map[string]string
}

// Exporter downloads exports and records them in the audit log.
type Exporter struct {
	downloader Downloader
	audit      *shared.AuditLogger
	logger     *slog.Logger
	now        func() time.Time
}

// NewExporter constructs an Exporter. audit may be nil.
func NewExporter(downloader Downloader, audit *shared.AuditLogger, logger *slog.Logger, now func() time.Time) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Exporter{downloader: downloader, audit: audit, logger: logger, now: now}
}

// Export fetches the spreadsheet for req.
func (e *Exporter) Export(ctx context.Context, req Request) (File, error) {
	now := e.now()
	dl, err := e.downloader.Export(ctx, req.Path, req.Params)
	if err != nil {
		return File{}, fmt.Errorf("export %s: %w", req.Entity, err)
	}
	file := File{
		Name:        Filename(req.Entity, req.Filter, now),
		ContentType: dl.ContentType,
		Body:        dl.Body,
		RequestID:   uuid.NewString(),
	}
	if file.ContentType == "" {
		file.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if e.audit != nil {
		meta := make(map[string]any, len(req.Params)+2)
		for k, v := range req.Params {
			meta[k] = v
		}
		meta["filename"] = file.Name
		meta["bytes"] = len(file.Body)
		err := e.audit.Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorFromContext(ctx).ID,
			Action:   "export",
			Entity:   req.Entity,
			EntityID: file.RequestID,
			Meta:     meta,
			At:       now,
		})
		if err != nil {
			e.logger.Warn("record export audit", slog.String("entity", req.Entity), slog.Any("error", err))
		}
	}
	return file, nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9.-]+`)

// Filename builds "<entity>[_<filter>-<value>...][_<preset>]_<YYYY-MM-DD>.xlsx"
// from the active filters, in filter name order.
func Filename(entity string, f listview.FilterState, now time.Time) string {
	parts := []string{sanitize(entity)}
	cats := f.ActiveCategories()
	names := make([]string, 0, len(cats))
	for k := range cats {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		parts = append(parts, sanitize(k)+"-"+sanitize(cats[k]))
	}
	if f.DateRange != "" && f.DateRange != listview.PresetAllTime {
		parts = append(parts, sanitize(string(f.DateRange)))
	}
	parts = append(parts, now.Format(time.DateOnly))
	return strings.Join(parts, "_") + extension
}

func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-.")
	if s == "" {
		return "x"
	}
	return s
}

// Write sends file as an attachment download.
func Write(w http.ResponseWriter, file File) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	w.Header().Set("X-Export-ID", file.RequestID)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}
