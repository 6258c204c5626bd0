// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestMIMEForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"photo.jpg", "image/jpeg"},
		{"photo.JPEG", "image/jpeg"},
		{"chart.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"report.pdf", "application/pdf"},
		{"letter.doc", "application/msword"},
		{"letter.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"sheet.xls", "application/vnd.ms-excel"},
		{"sheet.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"notes.txt", "text/plain"},
		{"archive.zip", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := MIMEForPath(tt.path); got != tt.want {
			t.Errorf("MIMEForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestKindForPath(t *testing.T) {
	if got := KindForPath("holiday.png"); got != "image" {
		t.Errorf("png kind = %q", got)
	}
	if got := KindForPath("itinerary.pdf"); got != "file" {
		t.Errorf("pdf kind = %q", got)
	}
	if got := KindForPath("data.bin"); got != "file" {
		t.Errorf("bin kind = %q", got)
	}
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(path, []byte("jpegdata"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app-testkey" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart parse failed: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got := r.FormValue("user"); got != "alice" {
			t.Errorf("user field = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file field missing: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "photo.jpg" {
			t.Errorf("filename = %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("file content type = %q", ct)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"file-xyz","name":"photo.jpg"}`))
	}))
	defer server.Close()

	client := NewClient("app-testkey").WithBaseURL(server.URL).WithUser("alice")
	id, err := client.UploadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if id != "file-xyz" {
		t.Errorf("file id = %q", id)
	}
}

func TestUploadFileRejectsNon201(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.pdf")
	if err := os.WriteFile(path, []byte("pdf"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write([]byte(`{"code":"file_too_large","message":"file exceeds limit"}`))
	}))
	defer server.Close()

	client := NewClient("app-testkey").WithBaseURL(server.URL)
	_, err := client.UploadFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for non-201 response")
	}

	var upErr *UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UploadError, got %T", err)
	}
	if upErr.Name != "big.pdf" {
		t.Errorf("upload error name = %q", upErr.Name)
	}
}

func TestUploadFileMissingLocalFile(t *testing.T) {
	client := NewClient("app-testkey")
	_, err := client.UploadFile(context.Background(), "/nonexistent/nope.txt")
	var upErr *UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
}

func TestDownloadFileRelativeURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/abc/preview" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte("binary-image-data"))
	}))
	defer server.Close()

	// BaseURL carries the /v1 suffix; relative file URLs resolve against the host.
	client := NewClient("app-testkey").WithBaseURL(server.URL + "/v1")
	data, err := client.DownloadFile(context.Background(), "/files/abc/preview")
	if err != nil {
		t.Fatalf("DownloadFile failed: %v", err)
	}
	if string(data) != "binary-image-data" {
		t.Errorf("data = %q", data)
	}
}
