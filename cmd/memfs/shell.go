package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/models"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/tree"
)

var errExit = errors.New("exit")

func newShellCmd(a *app) *cobra.Command {
	var (
		noPrompt bool
		server   string
	)

	cmd := &cobra.Command{
		Use:   "shell [script]",
		Short: "Run namespace commands from stdin or a script file",
		Long: `Reads one command per line. Arguments are separated by spaces and may be
double-quoted; backslashes are kept as path separators. Type "help" for the
command list.

With --server the commands go to a running "memfs serve" instead of a
fresh in-process namespace.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var ops namespaceOps
			if server != "" {
				c := newClient(a, server)
				if _, err := c.Ping(ctx); err != nil {
					return err
				}
				ops = remoteOps{c: c}
			} else {
				store, closeFn, err := openStore(ctx, a.cfg)
				if err != nil {
					return err
				}
				defer closeStore(closeFn)
				ops = localOps{ns: a.newManager(), store: store}
			}

			sh := newShell(ops, cmd.OutOrStdout())
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
				noPrompt = true
			}
			if !noPrompt {
				sh.prompt = "memfs> "
			}
			return sh.Run(ctx, in)
		},
	}
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "do not print a prompt")
	cmd.Flags().StringVar(&server, "server", "", "memfs server URL, e.g. http://localhost:8080")
	return cmd
}

// shell executes line-oriented commands against a namespace.
type shell struct {
	ops    namespaceOps
	out    io.Writer
	prompt string
}

type shellCommand struct {
	usage   string
	summary string
	minArgs int
	maxArgs int // -1 for no limit
	run     func(ctx context.Context, args []string) error
}

func newShell(ops namespaceOps, out io.Writer) *shell {
	return &shell{ops: ops, out: out}
}

// Run executes commands read from in until EOF or "exit". Command errors are
// printed and do not stop the loop.
func (sh *shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	for {
		if sh.prompt != "" {
			fmt.Fprint(sh.out, sh.prompt)
		}
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := sh.Exec(ctx, scanner.Text())
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// Exec parses and runs a single command line. Blank lines and lines starting
// with # are ignored.
func (sh *shell) Exec(ctx context.Context, line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return nil
	}

	name := strings.ToLower(args[0])
	cmd, ok := sh.commands()[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try \"help\")", args[0])
	}
	args = args[1:]
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.run(ctx, args)
}

// splitArgs splits a command line on spaces. Double quotes group words and
// "" inside a quoted word is a literal quote. Backslashes are not escapes.
func splitArgs(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = ' '
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	return fields, nil
}

func (sh *shell) commands() map[string]shellCommand {
	return map[string]shellCommand{
		"create": {"create <drive|folder|textfile|zipfile> <name> [parent]", "create an entity", 2, 3, sh.create},
		"rm":     {"rm <path>", "delete an entity and everything under it", 1, 1, sh.remove},
		"mv":     {"mv <source> <destination>", "move an entity into a container", 2, 2, sh.move},
		"cp":     {"cp <source> <destination>", "copy an entity into a container", 2, 2, sh.copy},
		"rename": {"rename <path> <name>", "rename an entity", 2, 2, sh.rename},
		"write":  {"write <path> <content...>", "replace a text file's content", 1, -1, sh.write},
		"cat":    {"cat <path>", "print a text file's content", 1, 1, sh.cat},
		"ls":     {"ls [path]", "list a container, or the drives", 0, 1, sh.list},
		"stat":   {"stat <path>", "show entity metadata", 1, 1, sh.stat},
		"find":   {"find <name>", "find entities by exact name", 1, 1, sh.find},
		"tree":   {"tree [path]", "print a subtree, or every drive", 0, 1, sh.tree},
		"save":   {"save", "save a snapshot to the configured store", 0, 0, sh.save},
		"load":   {"load", "replace the namespace with the stored snapshot", 0, 0, sh.load},
		"help":   {"help", "show this list", 0, 0, sh.help},
		"exit":   {"exit", "leave the shell", 0, 0, func(context.Context, []string) error { return errExit }},
	}
}

func (sh *shell) create(ctx context.Context, args []string) error {
	kind, err := entity.ParseKind(args[0])
	if err != nil {
		return err
	}
	var parent string
	if len(args) == 3 {
		parent = args[2]
	}
	if _, err := sh.ops.Create(ctx, kind, args[1], parent); err != nil {
		return err
	}
	path := args[1]
	if kind != entity.KindDrive {
		path = tree.BuildChildPath(parent, args[1])
	}
	fmt.Fprintf(sh.out, "created %s %s\n", kind, path)
	return nil
}

func (sh *shell) remove(ctx context.Context, args []string) error {
	left, err := sh.ops.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "removed %s (%d entities left)\n", args[0], left)
	return nil
}

func (sh *shell) move(ctx context.Context, args []string) error {
	if _, err := sh.ops.Move(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "moved %s to %s\n", args[0], args[1])
	return nil
}

func (sh *shell) copy(ctx context.Context, args []string) error {
	if _, err := sh.ops.Copy(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "copied %s to %s\n", args[0], args[1])
	return nil
}

func (sh *shell) rename(ctx context.Context, args []string) error {
	if _, err := sh.ops.Rename(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "renamed %s to %s\n", args[0], args[1])
	return nil
}

func (sh *shell) write(ctx context.Context, args []string) error {
	content := strings.Join(args[1:], " ")
	if err := sh.ops.Write(ctx, args[0], content); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "wrote %s to %s\n", humanize.Bytes(uint64(len(content))), args[0])
	return nil
}

func (sh *shell) cat(ctx context.Context, args []string) error {
	content, err := sh.ops.Read(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, content)
	return nil
}

func (sh *shell) list(ctx context.Context, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	}
	entries, err := sh.ops.List(ctx, path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(sh.out, "(empty)")
		return nil
	}

	w := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tSIZE\tMODIFIED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Kind, humanize.Bytes(uint64(e.Size)), humanize.Time(e.UpdatedAt))
	}
	return w.Flush()
}

func (sh *shell) stat(ctx context.Context, args []string) error {
	info, err := sh.ops.Stat(ctx, args[0])
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(sh.out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "Path:\t%s\n", info.Path)
	fmt.Fprintf(w, "Kind:\t%s\n", info.Kind)
	fmt.Fprintf(w, "ID:\t%s\n", info.ID)
	fmt.Fprintf(w, "Size:\t%s (%d bytes)\n", humanize.Bytes(uint64(info.Size)), info.Size)
	fmt.Fprintf(w, "Created:\t%s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Modified:\t%s\n", info.UpdatedAt.Format("2006-01-02 15:04:05"))
	return w.Flush()
}

func (sh *shell) find(ctx context.Context, args []string) error {
	matches, err := sh.ops.Search(ctx, args[0])
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(sh.out, "no matches")
		return nil
	}
	for _, m := range matches {
		fmt.Fprintln(sh.out, m)
	}
	return nil
}

func (sh *shell) tree(ctx context.Context, args []string) error {
	if len(args) == 1 {
		// Surface the precise resolution error for bad paths.
		if _, err := sh.ops.Stat(ctx, args[0]); err != nil {
			return err
		}
	}
	roots, err := sh.ops.Tree(ctx)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		path := tree.JoinPath(tree.SplitPath(args[0])...)
		node := tree.FindByPath(roots, path)
		if node == nil {
			return fmt.Errorf("%w: %s", namespace.ErrNotFound, path)
		}
		roots = []*models.EntityNode{node}
	}
	if len(roots) == 0 {
		fmt.Fprintln(sh.out, "(no drives)")
		return nil
	}

	for _, root := range roots {
		err := tree.Walk(root, func(n *models.EntityNode, depth int) error {
			indent := strings.Repeat("  ", depth)
			if n.IsContainer() {
				_, err := fmt.Fprintf(sh.out, "%s%s [%s]\n", indent, n.Name, n.Kind)
				return err
			}
			_, err := fmt.Fprintf(sh.out, "%s%s (%s)\n", indent, n.Name, humanize.Bytes(uint64(n.Size)))
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (sh *shell) save(ctx context.Context, _ []string) error {
	n, err := sh.ops.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "saved %d entities\n", n)
	return nil
}

func (sh *shell) load(ctx context.Context, _ []string) error {
	n, err := sh.ops.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "loaded %d entities\n", n)
	return nil
}

func (sh *shell) help(context.Context, []string) error {
	cmds := sh.commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", cmds[name].usage, cmds[name].summary)
	}
	return w.Flush()
}
