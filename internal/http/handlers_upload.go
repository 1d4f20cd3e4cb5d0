package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/text/encoding/charmap"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
)

// maxUploadBytes bounds a single CSV upload. Bank exports are a few
// hundred kilobytes at most.
const maxUploadBytes = 10 << 20

// handleUpload accepts a multipart CSV export, decodes it from the
// bank's Windows-1252 encoding and runs it through the importer.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	text, err := decodeExport(file)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read upload",
			"filename", header.Filename, "error", err)
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	report, err := s.importer.Import(r.Context(), text, header.Filename)
	switch {
	case errors.Is(err, core.ErrNoHeader):
		writeError(w, http.StatusBadRequest, "no recognizable header line; is this an ING export?")
		return
	case errors.Is(err, core.ErrNoTransactions):
		writeError(w, http.StatusBadRequest, "the file contains no parseable transactions")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Import failed",
			"filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	s.dashCache.InvalidatePrefix(dashboardKeyPrefix)

	status := http.StatusOK
	if len(report.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, report)
}

// decodeExport converts the raw upload bytes to UTF-8. ING exports are
// Windows-1252 encoded; decoding is lossless for plain ASCII files too.
func decodeExport(r io.Reader) (string, error) {
	raw, err := io.ReadAll(charmap.Windows1252.NewDecoder().Reader(r))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
