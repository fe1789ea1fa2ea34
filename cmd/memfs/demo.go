package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/memfs/internal/storage"
	"github.com/fruitsalade/memfs/internal/storage/local"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/snapshot"
)

// demoScript walks through every namespace operation. The folder inside the
// zip file is refused on purpose.
var demoScript = []string{
	`create drive C`,
	`create folder Docs C`,
	`create folder desk C`,
	`create textfile Hello.txt C\Docs`,
	`write C\Docs\Hello.txt "Hello from the in-memory file system!"`,
	`cp C\Docs\Hello.txt C\desk`,
	`create zipfile Archive.zip C`,
	`create textfile readme.txt C\Archive.zip`,
	`create folder subfolder C\Archive.zip`,
	`save`,
	`load`,
	`ls C\Docs`,
	`find Hello.txt`,
	`rename C\Docs\Hello.txt Hi.txt`,
	`stat C\Docs\Hi.txt`,
	`cat C\Docs\Hi.txt`,
	`mv C\desk\Hello.txt C\Archive.zip`,
	`rm C\desk`,
	`tree`,
}

func newDemoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted walk-through of the namespace operations",
		Long: `Runs a fixed script against a fresh namespace and prints each command with
its output. Snapshots go to the configured store, or to a temporary
directory when SNAPSHOT_STORE is "none".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeFn, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer closeStore(closeFn)

			if store == nil {
				dir, err := os.MkdirTemp("", "memfs-demo-")
				if err != nil {
					return err
				}
				defer os.RemoveAll(dir)

				backend, err := local.New(local.Config{RootPath: dir, CreateDirs: true})
				if err != nil {
					return err
				}
				store = storage.NewSnapshotStore(backend, snapshot.JSONCodec{}, "snapshot.json")
			}

			return runDemo(ctx, a.newManager(), store, cmd.OutOrStdout())
		},
	}
}

// runDemo executes demoScript. Failing commands are reported inline and the
// script carries on.
func runDemo(ctx context.Context, ns *namespace.Manager, store namespace.Store, out io.Writer) error {
	sh := newShell(localOps{ns: ns, store: store}, out)
	for _, line := range demoScript {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(out, "> %s\n", line)
		if err := sh.Exec(ctx, line); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	return nil
}
