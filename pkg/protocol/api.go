// Package protocol defines the API request/response types.
package protocol

import (
	"github.com/fruitsalade/memfs/pkg/models"
)

// CreateRequest is the body for POST /api/v1/entities.
// Parent is ignored when Kind is "drive".
type CreateRequest struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// TransferRequest is the body for POST /api/v1/move and POST /api/v1/copy.
type TransferRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// RenameRequest is the body for POST /api/v1/rename.
type RenameRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// MutationResponse is returned by successful mutations.
type MutationResponse struct {
	Op   string `json:"op"`
	Path string `json:"path"`
	// Entities is the total entity count afterwards.
	Entities int `json:"entities"`
}

// TreeResponse is returned by GET /api/v1/tree
type TreeResponse struct {
	Drives []*models.EntityNode `json:"drives"`
}

// ListResponse is returned by GET /api/v1/list
type ListResponse struct {
	Path     string               `json:"path"`
	Children []*models.EntityNode `json:"children"`
}

// SearchResponse is returned by GET /api/v1/search
type SearchResponse struct {
	Name  string   `json:"name"`
	Paths []string `json:"paths"`
}

// SnapshotResponse is returned by the snapshot save and load endpoints.
type SnapshotResponse struct {
	Store    string `json:"store"`
	Entities int    `json:"entities"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Drives   int    `json:"drives"`
	Entities int    `json:"entities"`
}

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}

// SSEEvent is a namespace change pushed on GET /api/v1/events.
type SSEEvent struct {
	Type      string `json:"type"`
	Path      string `json:"path"`
	Target    string `json:"target,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
}
