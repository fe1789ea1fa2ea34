// Package tree provides shared utilities for namespace paths and exported
// entity trees.
package tree

import (
	"strings"

	"github.com/fruitsalade/memfs/pkg/models"
)

// Separator joins path segments. The first segment of a path names a drive.
const Separator = `\`

// SplitPath splits a path into its segments. Trailing empty segments are
// dropped, so "C\Docs\" and "C\Docs" address the same entity.
func SplitPath(path string) []string {
	parts := strings.Split(path, Separator)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// JoinPath joins segments with the separator.
func JoinPath(segments ...string) string {
	return strings.Join(segments, Separator)
}

// BuildChildPath constructs a child path from parent + name. An empty parent
// yields a drive path.
func BuildChildPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + Separator + name
}

// FindByPath resolves a path in a forest of exported nodes (recursive).
func FindByPath(roots []*models.EntityNode, path string) *models.EntityNode {
	for _, root := range roots {
		if found := findByPath(root, path); found != nil {
			return found
		}
	}
	return nil
}

func findByPath(node *models.EntityNode, path string) *models.EntityNode {
	if node == nil {
		return nil
	}
	if node.Path == path {
		return node
	}
	if !strings.HasPrefix(path, node.Path+Separator) {
		return nil
	}
	for _, child := range node.Children {
		if found := findByPath(child, path); found != nil {
			return found
		}
	}
	return nil
}

// CountNodes counts all nodes in a tree.
func CountNodes(root *models.EntityNode) int {
	if root == nil {
		return 0
	}
	count := 1
	for _, child := range root.Children {
		count += CountNodes(child)
	}
	return count
}

// Walk visits root and its descendants in pre-order. depth is 0 for root.
// Returning an error from fn stops the walk.
func Walk(root *models.EntityNode, fn func(node *models.EntityNode, depth int) error) error {
	if root == nil {
		return nil
	}
	return walk(root, 0, fn)
}

func walk(node *models.EntityNode, depth int, fn func(*models.EntityNode, int) error) error {
	if err := fn(node, depth); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
