// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
	"github.com/LeeDigitalWorks/zapdrive/pkg/metastore"
	"github.com/LeeDigitalWorks/zapdrive/pkg/types"
	"github.com/LeeDigitalWorks/zapdrive/pkg/uploader"
)

// fallbackContentType is used when a part declares no MIME type and
// the extension is unknown.
const fallbackContentType = "application/octet-stream"

// uploadResult is the per-file JSON outcome of an upload batch.
type uploadResult struct {
	FileID string            `json:"file_id,omitempty"`
	Name   string            `json:"name"`
	Status string            `json:"status"`
	Record *types.FileRecord `json:"record,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// handleUpload accepts one or more files as multipart form data and
// drives them through the upload pipeline. Files are processed
// strictly in form order; the response carries one terminal status
// per file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	// First contact provisions a free-plan account; the upload
	// preflight reads its quota row.
	if _, err := s.db.EnsureAccount(r.Context(), owner); err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(s.cfg.MultipartMemoryBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_multipart", "could not parse multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		writeError(w, r, http.StatusBadRequest, "no_files", `multipart body has no "files" parts`)
		return
	}

	batch := make([]uploader.File, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unreadable_part", fh.Filename)
			return
		}
		opened = append(opened, f)

		batch = append(batch, uploader.File{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: partContentType(fh),
			Data:        f,
		})
	}

	results, err := s.up.Upload(r.Context(), owner, batch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]uploadResult, len(results))
	for i, res := range results {
		out[i] = uploadResult{
			Name:   res.Name,
			Status: string(res.Status),
			Record: res.Record,
		}
		if res.FileID != uuid.Nil {
			out[i].FileID = res.FileID.String()
		}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"results": out})
}

// partContentType resolves a part's MIME type, preferring the client's
// declaration and falling back to the file extension.
func partContentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != fallbackContentType {
		return ct
	}
	if ct := mime.TypeByExtension(filepath.Ext(fh.Filename)); ct != "" {
		return ct
	}
	return fallbackContentType
}

// handleListFiles returns the caller's records, newest first, with
// keyset pagination on the created-at cursor.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	params := metastore.ListParams{Limit: metastore.DefaultListLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		params.Limit = n
	}
	if raw := r.URL.Query().Get("before"); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_cursor", "before must be a unix timestamp")
			return
		}
		params.Before = ts
	}

	files, err := s.db.ListFiles(r.Context(), owner, params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := map[string]any{"files": files}
	if len(files) == params.Limit {
		resp["next_before"] = files[len(files)-1].CreatedAt
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleFileURL resolves a fresh retrievable URL for one record.
// Presigned URLs expire, so clients ask here instead of caching the
// URL stored at commit time.
func (s *Server) handleFileURL(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_id", "file id must be a uuid")
		return
	}

	rec, err := s.db.GetFile(r.Context(), owner, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	url, err := s.blobs.URL(r.Context(), rec.Key)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"id":   rec.ID,
		"name": rec.Name,
		"url":  url,
	})
}

// handleDeleteFile removes the record first, then the blob objects.
// The record delete is the authoritative action (it releases quota via
// the database trigger); object removal is best-effort and a failure
// only leaves unreferenced objects for the external janitor.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_id", "file id must be a uuid")
		return
	}

	rec, err := s.db.DeleteFile(r.Context(), owner, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := s.blobs.Remove(r.Context(), rec.PartKeys()...); err != nil {
		logger.Ctx(r.Context()).Warn().
			Err(err).
			Str("owner_id", owner).
			Str("key", rec.Key).
			Int("parts", rec.ChunkCount).
			Msg("api: blob removal failed, objects orphaned")
	}

	s.emitter.FileDeleted(r.Context(), rec)

	writeJSON(w, r, http.StatusOK, map[string]any{
		"deleted":     true,
		"freed_bytes": rec.Size,
	})
}
