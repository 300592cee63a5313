package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/siebentod/AcademyNomad/internal/fsops"
	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/internal/search"
	"github.com/siebentod/AcademyNomad/internal/xmp"
	"go.uber.org/zap"
)

type pathRequest struct {
	Path string `json:"path"`
}

type renameRequest struct {
	OriginalPath string `json:"original_path"`
	NewName      string `json:"new_name"`
}

type openRequest struct {
	Path        string  `json:"path"`
	Page        *uint32 `json:"page,omitempty"`
	ProgramPath string  `json:"program_path,omitempty"`
}

func (s *Server) handleSearch(level search.Level) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		s.logger.Debug("search request", zap.String("query", req.Query), zap.Stringer("level", level))
		results, err := s.svc.Search.Search(r.Context(), req, level)
		if err != nil {
			s.fail(w, "search failed", err)
			return
		}
		if results == nil {
			results = []models.SearchResult{}
		}
		s.respondJSON(w, http.StatusOK, results)
	}
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OriginalPath == "" {
		s.respondError(w, http.StatusBadRequest, "original_path is required")
		return
	}
	s.logger.Debug("rename request", zap.String("path", req.OriginalPath), zap.String("name", req.NewName))
	newPath, err := fsops.Rename(req.OriginalPath, req.NewName)
	if err != nil {
		s.fail(w, "rename failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"new_path": newPath})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path, ok := s.queryPath(w, r)
	if !ok {
		return
	}
	s.logger.Debug("delete request", zap.String("path", path))
	if err := fsops.Delete(path); err != nil {
		s.fail(w, "delete failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": path, "status": "deleted"})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if s.svc.Shell == nil {
		s.respondError(w, http.StatusNotImplemented, "shell integration not enabled")
		return
	}
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	res, err := s.svc.Shell.Open(req.Path, req.Page, req.ProgramPath)
	if err != nil {
		s.fail(w, "open failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	if s.svc.Shell == nil {
		s.respondError(w, http.StatusNotImplemented, "shell integration not enabled")
		return
	}
	path, ok := s.bodyPath(w, r)
	if !ok {
		return
	}
	if err := s.svc.Shell.Reveal(path); err != nil {
		s.fail(w, "reveal failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": path, "status": "revealed"})
}

func (s *Server) handleOpenWith(w http.ResponseWriter, r *http.Request) {
	if s.svc.Shell == nil {
		s.respondError(w, http.StatusNotImplemented, "shell integration not enabled")
		return
	}
	path, ok := s.bodyPath(w, r)
	if !ok {
		return
	}
	handler, err := s.svc.Shell.OpenWith(path)
	if err != nil {
		s.fail(w, "open with failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"handler": handler})
}

func (s *Server) handleCreatorID(w http.ResponseWriter, r *http.Request) {
	if s.svc.Metadata == nil {
		s.respondError(w, http.StatusNotImplemented, "metadata service not enabled")
		return
	}
	path, ok := s.bodyPath(w, r)
	if !ok {
		return
	}
	id, err := s.svc.Metadata.EnsureCreatorID(path)
	if err != nil {
		s.fail(w, "set creator id failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": path, "id": id})
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	if s.svc.Highlights == nil {
		s.respondError(w, http.StatusNotImplemented, "highlight extraction not enabled")
		return
	}
	path, ok := s.queryPath(w, r)
	if !ok {
		return
	}
	hs, err := s.svc.Highlights.Extract(path)
	if err != nil {
		s.fail(w, "highlight extraction failed", err)
		return
	}
	if hs == nil {
		hs = []models.Highlight{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"path": path, "highlights": hs})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if s.svc.Metadata == nil {
		s.respondError(w, http.StatusNotImplemented, "metadata service not enabled")
		return
	}
	path, ok := s.queryPath(w, r)
	if !ok {
		return
	}
	core, err := s.svc.Metadata.ReadCore(path)
	if err != nil && !errors.Is(err, xmp.ErrNoMetadata) {
		s.fail(w, "read metadata failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.DocumentMetadata{
		Title:   core.Title,
		Author:  core.Author,
		Creator: core.CreatorTool,
	})
}

func (s *Server) handleWatchList(w http.ResponseWriter, r *http.Request) {
	if s.svc.Watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.svc.Watch.Directories()
	if dirs == nil {
		dirs = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

func (s *Server) handleWatchAdd(w http.ResponseWriter, r *http.Request) {
	if s.svc.Watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path, ok := s.bodyPath(w, r)
	if !ok {
		return
	}
	s.logger.Debug("watch add directory request", zap.String("path", path))
	if err := s.svc.Watch.Watch(path); err != nil {
		s.fail(w, "watch add directory failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": path, "status": "added"})
}

func (s *Server) handleWatchRemove(w http.ResponseWriter, r *http.Request) {
	if s.svc.Watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body pathRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if strings.TrimSpace(path) == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", path))
	if err := s.svc.Watch.Unwatch(path); err != nil {
		s.fail(w, "watch remove directory failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": path, "status": "removed"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}
	if s.svc.Index != nil {
		docs, err := s.svc.Index.DocCount()
		if err != nil {
			s.logger.Error("status: count documents failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["documents"] = docs
		if n, err := s.svc.Index.DiskUsage(); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	if s.svc.Watch != nil {
		dirs := s.svc.Watch.Directories()
		if dirs == nil {
			dirs = []string{}
		}
		resp["watched_directories"] = dirs
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) bodyPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if strings.TrimSpace(req.Path) == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return "", false
	}
	return req.Path, true
}

func (s *Server) queryPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("path")
	if strings.TrimSpace(path) == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return "", false
	}
	return path, true
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, messageFor(err))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
