package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/fruitsalade/memfs/internal/logging"
	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/protocol"
	"github.com/fruitsalade/memfs/pkg/tree"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.HealthResponse{
		Status:   "ok",
		Drives:   len(s.ns.Drives()),
		Entities: s.ns.Len(),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := entity.ParseKind(req.Kind)
	if err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}
	if err := s.ns.Create(kind, req.Name, req.Parent); err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}

	path := req.Name
	if kind != entity.KindDrive {
		path = tree.BuildChildPath(req.Parent, req.Name)
	}
	s.sendMutation(w, http.StatusCreated, namespace.OpCreate, path)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if err := s.ns.Delete(path); err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}
	s.sendMutation(w, http.StatusOK, namespace.OpDelete, path)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	s.handleTransfer(w, r, namespace.OpMove, s.ns.Move)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	s.handleTransfer(w, r, namespace.OpCopy, s.ns.Copy)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request, op namespace.Op, fn func(src, dst string) error) {
	var req protocol.TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := fn(req.Source, req.Destination); err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}
	name := req.Source
	if segs := tree.SplitPath(req.Source); len(segs) > 0 {
		name = segs[len(segs)-1]
	}
	dst := tree.JoinPath(tree.SplitPath(req.Destination)...)
	s.sendMutation(w, http.StatusOK, op, tree.BuildChildPath(dst, name))
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req protocol.RenameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ns.Rename(req.Path, req.Name); err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}

	segs := tree.SplitPath(req.Path)
	segs[len(segs)-1] = req.Name
	s.sendMutation(w, http.StatusOK, namespace.OpRename, tree.JoinPath(segs...))
}

func (s *Server) handleWriteContent(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxContentSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.sendError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("content exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.sendError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := s.ns.WriteToFile(path, string(body)); err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}
	s.sendMutation(w, http.StatusOK, namespace.OpWrite, path)
}

func (s *Server) handleReadContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.ns.ReadFile(r.URL.Query().Get("path"))
	if err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, content)
}

func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	info, err := s.ns.Stat(r.URL.Query().Get("path"))
	if err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	children, err := s.ns.ListInfo(path)
	if err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.ListResponse{Path: path, Children: children})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.sendError(w, http.StatusBadRequest, "missing name parameter")
		return
	}
	writeJSON(w, http.StatusOK, protocol.SearchResponse{Name: name, Paths: s.ns.Search(name)})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.TreeResponse{Drives: s.ns.Tree()})
}

func (s *Server) handleSnapshotSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.sendError(w, http.StatusServiceUnavailable, "no snapshot store configured")
		return
	}
	if err := s.ns.SaveToDisk(r.Context(), s.store); err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}
	logging.WithContext(r.Context()).Info("snapshot saved",
		zap.String("store", s.storeName()),
		zap.Int("entities", s.ns.Len()))
	writeJSON(w, http.StatusOK, protocol.SnapshotResponse{Store: s.storeName(), Entities: s.ns.Len()})
}

func (s *Server) handleSnapshotLoad(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.sendError(w, http.StatusServiceUnavailable, "no snapshot store configured")
		return
	}
	if err := s.ns.LoadFromDisk(r.Context(), s.store); err != nil {
		s.sendNamespaceError(w, r, err)
		return
	}
	logging.WithContext(r.Context()).Info("snapshot loaded",
		zap.String("store", s.storeName()),
		zap.Int("entities", s.ns.Len()))
	writeJSON(w, http.StatusOK, protocol.SnapshotResponse{Store: s.storeName(), Entities: s.ns.Len()})
}

func (s *Server) sendMutation(w http.ResponseWriter, code int, op namespace.Op, path string) {
	writeJSON(w, code, protocol.MutationResponse{
		Op:       string(op),
		Path:     path,
		Entities: s.ns.Len(),
	})
}

func (s *Server) storeName() string {
	if st, ok := s.store.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", s.store)
}
