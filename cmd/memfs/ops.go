package main

import (
	"context"

	"github.com/fruitsalade/memfs/pkg/client"
	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/models"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/protocol"
)

// namespaceOps is what the shell needs from a namespace, either in-process
// or behind a memfs server. Mutations return the entity count afterwards.
type namespaceOps interface {
	Create(ctx context.Context, kind entity.Kind, name, parent string) (int, error)
	Delete(ctx context.Context, path string) (int, error)
	Move(ctx context.Context, src, dst string) (int, error)
	Copy(ctx context.Context, src, dst string) (int, error)
	Rename(ctx context.Context, path, name string) (int, error)
	Write(ctx context.Context, path, content string) error
	Read(ctx context.Context, path string) (string, error)
	Stat(ctx context.Context, path string) (*models.EntityNode, error)
	List(ctx context.Context, path string) ([]*models.EntityNode, error)
	Search(ctx context.Context, name string) ([]string, error)
	Tree(ctx context.Context) ([]*models.EntityNode, error)
	Save(ctx context.Context) (int, error)
	Load(ctx context.Context) (int, error)
}

// localOps runs against an in-process manager.
type localOps struct {
	ns    *namespace.Manager
	store namespace.Store
}

func (o localOps) Create(_ context.Context, kind entity.Kind, name, parent string) (int, error) {
	err := o.ns.Create(kind, name, parent)
	return o.ns.Len(), err
}

func (o localOps) Delete(_ context.Context, path string) (int, error) {
	err := o.ns.Delete(path)
	return o.ns.Len(), err
}

func (o localOps) Move(_ context.Context, src, dst string) (int, error) {
	err := o.ns.Move(src, dst)
	return o.ns.Len(), err
}

func (o localOps) Copy(_ context.Context, src, dst string) (int, error) {
	err := o.ns.Copy(src, dst)
	return o.ns.Len(), err
}

func (o localOps) Rename(_ context.Context, path, name string) (int, error) {
	err := o.ns.Rename(path, name)
	return o.ns.Len(), err
}

func (o localOps) Write(_ context.Context, path, content string) error {
	return o.ns.WriteToFile(path, content)
}

func (o localOps) Read(_ context.Context, path string) (string, error) {
	return o.ns.ReadFile(path)
}

func (o localOps) Stat(_ context.Context, path string) (*models.EntityNode, error) {
	return o.ns.Stat(path)
}

func (o localOps) List(_ context.Context, path string) ([]*models.EntityNode, error) {
	if path == "" {
		return driveInfos(o.ns.Tree()), nil
	}
	return o.ns.ListInfo(path)
}

func (o localOps) Search(_ context.Context, name string) ([]string, error) {
	return o.ns.Search(name), nil
}

func (o localOps) Tree(context.Context) ([]*models.EntityNode, error) {
	return o.ns.Tree(), nil
}

func (o localOps) Save(ctx context.Context) (int, error) {
	err := o.ns.SaveToDisk(ctx, o.store)
	return o.ns.Len(), err
}

func (o localOps) Load(ctx context.Context) (int, error) {
	err := o.ns.LoadFromDisk(ctx, o.store)
	return o.ns.Len(), err
}

// remoteOps runs against a memfs server.
type remoteOps struct {
	c *client.Client
}

func entities(resp *protocol.MutationResponse, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	return resp.Entities, nil
}

func (o remoteOps) Create(ctx context.Context, kind entity.Kind, name, parent string) (int, error) {
	return entities(o.c.Create(ctx, kind, name, parent))
}

func (o remoteOps) Delete(ctx context.Context, path string) (int, error) {
	return entities(o.c.Delete(ctx, path))
}

func (o remoteOps) Move(ctx context.Context, src, dst string) (int, error) {
	return entities(o.c.Move(ctx, src, dst))
}

func (o remoteOps) Copy(ctx context.Context, src, dst string) (int, error) {
	return entities(o.c.Copy(ctx, src, dst))
}

func (o remoteOps) Rename(ctx context.Context, path, name string) (int, error) {
	return entities(o.c.Rename(ctx, path, name))
}

func (o remoteOps) Write(ctx context.Context, path, content string) error {
	_, err := o.c.WriteFile(ctx, path, content)
	return err
}

func (o remoteOps) Read(ctx context.Context, path string) (string, error) {
	return o.c.ReadFile(ctx, path)
}

func (o remoteOps) Stat(ctx context.Context, path string) (*models.EntityNode, error) {
	return o.c.Stat(ctx, path)
}

func (o remoteOps) List(ctx context.Context, path string) ([]*models.EntityNode, error) {
	if path == "" {
		drives, err := o.c.Tree(ctx)
		if err != nil {
			return nil, err
		}
		return driveInfos(drives), nil
	}
	return o.c.List(ctx, path)
}

func (o remoteOps) Search(ctx context.Context, name string) ([]string, error) {
	return o.c.Search(ctx, name)
}

func (o remoteOps) Tree(ctx context.Context) ([]*models.EntityNode, error) {
	return o.c.Tree(ctx)
}

func (o remoteOps) Save(ctx context.Context) (int, error) {
	resp, err := o.c.SaveSnapshot(ctx)
	if err != nil {
		return 0, err
	}
	return resp.Entities, nil
}

func (o remoteOps) Load(ctx context.Context) (int, error) {
	resp, err := o.c.LoadSnapshot(ctx)
	if err != nil {
		return 0, err
	}
	return resp.Entities, nil
}

// driveInfos strips the subtrees from exported drives.
func driveInfos(drives []*models.EntityNode) []*models.EntityNode {
	out := make([]*models.EntityNode, 0, len(drives))
	for _, d := range drives {
		info := *d
		info.Children = nil
		out = append(out, &info)
	}
	return out
}
