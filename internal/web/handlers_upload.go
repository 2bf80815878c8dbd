package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/csvmatch/internal/core"
	"github.com/JonMunkholm/csvmatch/internal/logging"
)

var (
	errBothFilesRequired = errors.New("both files are required")
	errInvalidForm       = errors.New("invalid form")
)

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to disk.
const multipartMemory = 8 << 20

// formSlack covers multipart boundaries and part headers on top of the two
// file bodies.
const formSlack = 1 << 20

// handleUpload matches the two uploaded CSV files and returns the result as a
// download. Field file1 provides the header order, file2 the data rows.
//
// Both uploads and the generated output live in the temp directory only for
// the duration of the request plus the configured cleanup delay.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxFile := s.cfg.Match.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxFile+formSlack)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, tooLarge.Limit))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidForm, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file1, header1, err1 := r.FormFile("file1")
	file2, header2, err2 := r.FormFile("file2")
	if file1 != nil {
		defer file1.Close()
	}
	if file2 != nil {
		defer file2.Close()
	}
	if err1 != nil || err2 != nil {
		s.respondError(w, r, errBothFilesRequired)
		return
	}

	for _, h := range []*multipart.FileHeader{header1, header2} {
		if maxFile > 0 && h.Size > maxFile {
			s.respondError(w, r, fmt.Errorf("%w: %s exceeds %d bytes", core.ErrFileTooLarge, h.Filename, maxFile))
			return
		}
	}

	ctx := WithRequestMetadata(r.Context(), r)
	logger := logging.WithFields(ctx, "file1", header1.Filename, "file2", header2.Filename)
	logger.Info("processing match request")

	files := newTempFiles(s.cfg.Match.TempDir)
	defer files.removeAfter(ctx, s.cfg.Match.CleanupDelay)

	path1, err := files.spool(file1)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	path2, err := files.spool(file2)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.Match(ctx, core.MatchRequest{
		File1Name: header1.Filename,
		File1Path: path1,
		File2Name: header2.Filename,
		File2Path: path2,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logger.Info("match completed",
		"job_id", result.ID,
		"rows", result.Rows,
		"columns", result.Columns,
		"duration_ms", result.Duration.Milliseconds(),
	)

	out, err := files.create(".csv")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer out.Close()

	if _, err := out.Write(result.CSV); err != nil {
		s.respondError(w, r, fmt.Errorf("write output: %w", err))
		return
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		s.respondError(w, r, fmt.Errorf("write output: %w", err))
		return
	}

	name := s.cfg.Match.OutputName
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("X-Match-ID", result.ID)
	http.ServeContent(w, r, name, result.CompletedAt, out)
}
