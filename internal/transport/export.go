// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package transport

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/LuciferDono/CrowdSafe/internal/logging"
)

// Download is a received binary payload plus its server-suggested name.
type Download struct {
	Filename string
	Data     []byte
}

// ExportMetrics downloads a metrics export (csv, pdf, docx, markdown)
// for a camera and range. The filename is taken from the
// Content-Disposition header, falling back to a synthesized default when
// the header is absent or malformed.
func (c *Client) ExportMetrics(ctx context.Context, cameraID, format string, q MetricsQuery) (*Download, error) {
	params := url.Values{}
	params.Set("format", format)
	if !q.Start.IsZero() {
		params.Set("start", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		params.Set("end", q.End.UTC().Format(time.RFC3339))
	}

	path := "/api/metrics/" + url.PathEscape(cameraID) + "/export?" + params.Encode()
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("export request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIStatusError{StatusCode: resp.StatusCode, Message: "export failed"}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export body: %w", err)
	}

	return &Download{
		Filename: dispositionFilename(resp.Header.Get("Content-Disposition"), "crowdsafe_export."+format),
		Data:     data,
	}, nil
}

// DownloadRecording fetches a finished recording by id.
func (c *Client) DownloadRecording(ctx context.Context, recordingID string) (*Download, error) {
	path := "/api/recordings/" + url.PathEscape(recordingID) + "/download"
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("recording download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIStatusError{StatusCode: resp.StatusCode, Message: "recording download failed"}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording body: %w", err)
	}

	return &Download{
		Filename: dispositionFilename(resp.Header.Get("Content-Disposition"), recordingID+".mp4"),
		Data:     data,
	}, nil
}

// SaveTo writes the download into dir under its suggested filename and
// returns the full path. The filename is sanitized to its base name so a
// hostile header cannot escape the target directory.
func (d *Download) SaveTo(dir string) (string, error) {
	name := filepath.Base(d.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "download.bin"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, d.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save download: %w", err)
	}
	logging.Info().Str("path", path).Int("bytes", len(d.Data)).Msg("[transport] Download saved")
	return path, nil
}

// dispositionFilename extracts the filename parameter from a
// Content-Disposition header, returning fallback when missing.
func dispositionFilename(header, fallback string) string {
	if header == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return fallback
	}
	if name := params["filename"]; name != "" {
		return name
	}
	return fallback
}
