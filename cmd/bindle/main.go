// Command bindle inspects and manipulates bindle archive files.
package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/spf13/cobra"

	bindle "github.com/zshipko/bindle-file"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra prints errors automatically, but we exit non-zero
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bindle",
		Short:         "Inspect and manipulate bindle archive files.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newListCmd(),
		newCatCmd(),
		newAddCmd(),
		newPackCmd(),
		newUnpackCmd(),
		newVacuumCmd(),
	)

	return root
}

func newListCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "list <archive>",
		Short: "List entry names in insertion order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bindle.Open(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			for _, name := range a.Names() {
				if !long {
					fmt.Fprintln(cmd.OutOrStdout(), name)
					continue
				}

				entry, _ := a.Stat(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %10d %10d %08x %s\n",
					entry.CompType, entry.USize, entry.CSize, entry.CRC32, name)
			}

			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show sizes, compression and CRC per entry")

	return cmd
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <archive> <name>",
		Short: "Write one entry's contents to stdout.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bindle.Open(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.Read(args[1])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
}

func newAddCmd() *cobra.Command {
	sel := newCompressionFlag()

	cmd := &cobra.Command{
		Use:   "add <archive> <name> <file>",
		Short: "Add or replace one entry from a file.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[2])
			if err != nil {
				return err
			}

			a, err := bindle.Create(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Add(args[1], data, sel.value); err != nil {
				return err
			}

			return a.Save()
		},
	}
	cmd.Flags().VarP(sel, "compression", "c", "compression: none, zstd or auto")

	return cmd
}

func newPackCmd() *cobra.Command {
	sel := newCompressionFlag()

	cmd := &cobra.Command{
		Use:   "pack <archive> <dir>",
		Short: "Add every regular file under a directory tree.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bindle.Create(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			root := args[1]
			err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil || !d.Type().IsRegular() {
					return err
				}

				rel, err := filepath.Rel(root, path)
				if err != nil {
					return err
				}

				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}

				return a.Add(filepath.ToSlash(rel), data, sel.value)
			})
			if err != nil {
				return err
			}

			return a.Save()
		},
	}
	cmd.Flags().VarP(sel, "compression", "c", "compression: none, zstd or auto")

	return cmd
}

func newUnpackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <archive> <dir>",
		Short: "Extract every entry into a directory tree.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bindle.Open(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			for _, name := range a.Names() {
				dest, err := securePath(args[1], name)
				if err != nil {
					return err
				}

				r, err := a.NewReader(name)
				if err != nil {
					return err
				}
				data, err := io.ReadAll(r)
				if cerr := r.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return err
				}

				if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
					return err
				}
				// Write-then-rename so an interrupted unpack never leaves a
				// half-written file at the final path.
				if err := renameio.WriteFile(dest, data, 0o644); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

// securePath joins an entry name under dir, refusing names that would
// escape it.
func securePath(dir, name string) (string, error) {
	dest := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, dest)
	if err != nil || rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("entry name escapes target directory: %q", name)
	}

	return dest, nil
}

func newVacuumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum <archive>",
		Short: "Compact the archive, dropping shadowed and removed data.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bindle.Open(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Vacuum()
		},
	}
}

// compressionFlag parses the --compression flag into a selector.
type compressionFlag struct {
	value bindle.CompressionSelector
}

func newCompressionFlag() *compressionFlag {
	return &compressionFlag{value: bindle.CompressionAuto}
}

func (f *compressionFlag) String() string {
	return f.value.String()
}

func (f *compressionFlag) Set(s string) error {
	switch s {
	case "none":
		f.value = bindle.CompressionNone
	case "zstd":
		f.value = bindle.CompressionZstd
	case "auto":
		f.value = bindle.CompressionAuto
	default:
		return fmt.Errorf("unknown compression %q (want none, zstd or auto)", s)
	}

	return nil
}

func (f *compressionFlag) Type() string {
	return "string"
}
