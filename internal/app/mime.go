package app

import (
	"log/slog"
	"mime"
)

// Export downloads and attachment previews rely on these being known even
// on hosts without a full mime.types database.
func init() {
	ensureMimeType(".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ensureMimeType(".webp", "image/webp")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
