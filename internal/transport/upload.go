// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// ProgressFunc receives upload progress as bytes sent out of total.
// Total is the file size; callbacks fire on every chunk written.
type ProgressFunc func(sent, total int64)

// progressReader wraps a reader and reports cumulative bytes read.
type progressReader struct {
	r        io.Reader
	total    int64
	sent     int64
	progress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		if p.progress != nil {
			p.progress(p.sent, p.total)
		}
	}
	return n, err
}

// UploadCameraVideo uploads a video source file for a camera as
// multipart form data under the "video" field. Progress callbacks fire
// as the body streams; pass nil to skip reporting.
//
// The multipart body is streamed through an io.Pipe rather than buffered,
// so multi-gigabyte recordings upload at constant memory.
func (c *Client) UploadCameraVideo(ctx context.Context, cameraID, filePath string, progress ProgressFunc) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open video file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat video file: %w", err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("video", filepath.Base(filePath))
		if err != nil {
			_ = pw.CloseWithError(fmt.Errorf("failed to create form file: %w", err))
			return
		}
		reader := &progressReader{r: file, total: info.Size(), progress: progress}
		if _, err := io.Copy(part, reader); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("failed to stream video: %w", err))
			return
		}
		_ = pw.CloseWithError(writer.Close())
	}()

	path := c.baseURL + "/api/cameras/" + url.PathEscape(cameraID) + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, pr)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token := c.store.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
