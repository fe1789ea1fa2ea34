// Package models contains the exported data types shared by the namespace,
// snapshot codecs and the API.
package models

import "time"

// EntityNode is a detached copy of a namespace entity. Container nodes carry
// their children; text files carry their content.
type EntityNode struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	Kind      string        `json:"kind" yaml:"kind"`
	Path      string        `json:"path,omitempty" yaml:"path,omitempty"`
	Size      int64         `json:"size" yaml:"size"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" yaml:"updated_at"`
	Content   string        `json:"content,omitempty" yaml:"content,omitempty"`
	Children  []*EntityNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsContainer reports whether the node's kind can hold children.
func (n *EntityNode) IsContainer() bool {
	switch n.Kind {
	case "drive", "folder", "zipfile":
		return true
	}
	return false
}
