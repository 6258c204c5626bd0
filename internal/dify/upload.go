// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// FILE UPLOAD
// =============================================================================

// mimeTypes maps file extensions to their upload content types. Anything
// not listed uploads as application/octet-stream.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain",
}

// imageExts is the set of extensions treated as images in chat payloads.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// MIMEForPath returns the upload content type for a file path.
func MIMEForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// KindForPath returns the chat payload file type for a path:
// "image" for image extensions, "file" for everything else.
func KindForPath(path string) string {
	if imageExts[strings.ToLower(filepath.Ext(path))] {
		return "image"
	}
	return "file"
}

// UploadError wraps a failure to upload one attachment, carrying the
// attachment name so callers can degrade gracefully per file.
type UploadError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *UploadError) Unwrap() error {
	return e.Err
}

// UploadFile uploads a local file and returns the opaque file id to
// reference in a subsequent chat request.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &UploadError{Name: name, Err: err}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// The file part carries an explicit content type by extension; the
	// default multipart writer would send application/octet-stream for
	// everything.
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscape(name)))
	header.Set("Content-Type", MIMEForPath(path))
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", &UploadError{Name: name, Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return "", &UploadError{Name: name, Err: err}
	}

	if err := writer.WriteField("user", c.user); err != nil {
		return "", &UploadError{Name: name, Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &UploadError{Name: name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", &buf)
	if err != nil {
		return "", &UploadError{Name: name, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", "travelmind/0.1.0")

	c.logRequest(req)
	startTime := time.Now()
	// PERFORMANCE: Use shared HTTP client with connection pooling
	resp, err := sharedHTTPClient.Do(req)

	// SECURITY: Clear Authorization header immediately after request to prevent logging
	req.Header.Del("Authorization")

	if err != nil {
		return "", &UploadError{Name: name, Err: err}
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(startTime))

	body, err := readResponse(resp)
	if err != nil {
		return "", &UploadError{Name: name, Err: err}
	}

	// Upload success is 201, not 200.
	if resp.StatusCode != http.StatusCreated {
		return "", &UploadError{Name: name, Err: c.handleErrorResponse(resp.StatusCode, body)}
	}

	var uploaded uploadResponse
	if err := unmarshalUpload(body, &uploaded); err != nil {
		return "", &UploadError{Name: name, Err: err}
	}
	if uploaded.ID == "" {
		return "", &UploadError{Name: name, Err: fmt.Errorf("upload response missing file id")}
	}

	return uploaded.ID, nil
}

// DownloadFile fetches a remote file announced by the assistant and returns
// its contents.
// SECURITY: Response size limit prevents memory exhaustion.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	// File URLs may be relative to the API host.
	if strings.HasPrefix(fileURL, "/") {
		fileURL = strings.TrimSuffix(c.baseURL, "/v1") + fileURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "travelmind/0.1.0")

	resp, err := sharedHTTPClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	return readResponse(resp)
}

// quoteEscape escapes quotes and backslashes in multipart filenames.
func quoteEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// unmarshalUpload decodes the upload response body.
func unmarshalUpload(body []byte, out *uploadResponse) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse upload response: %w", err)
	}
	return nil
}
