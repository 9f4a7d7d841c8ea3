package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// errRunFailed is returned by commands whose result carries errors that
// were already printed.
var errRunFailed = errors.New("run failed")

func readScript(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	return string(data), nil
}

// report prints warnings and errors to w and returns errRunFailed when
// there are errors.
func report(w io.Writer, r EvalResult) error {
	for _, warn := range r.Warnings {
		fmt.Fprintln(w, "warning:", warn.Message)
	}
	for _, e := range r.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "error: line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintln(w, "error:", e.Message)
		}
	}
	if !r.OK() {
		return errRunFailed
	}
	return nil
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var withStep bool

	cmd := &cobra.Command{
		Use:   "analyze SCRIPT",
		Short: "Print hull_volume ellipsoid_volume axis0 axis1 axis2 per snapshot",
		Long:  "Evaluate SCRIPT (or - for stdin) and print one line per analysable snapshot.\nDegenerate snapshots are reported as warnings and skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			source, err := readScript(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("with-step") {
				c.cfg.Output.WithStep = withStep
			}
			r := c.app.Evaluate(source)
			for _, s := range r.Steps {
				if s.Error == "" {
					fmt.Fprintln(cmd.OutOrStdout(), s.Line)
				}
			}
			return report(cmd.ErrOrStderr(), r)
		}),
	}
	cmd.Flags().BoolVar(&withStep, "with-step", false, "prefix each line with the snapshot step")
	return cmd
}

func newMeshCmd(c *cli) *cobra.Command {
	var (
		step      int64
		envelopes bool
		out       string
	)

	cmd := &cobra.Command{
		Use:   "mesh SCRIPT",
		Short: "Export snapshot hulls (and envelopes) as JSON triangle meshes",
		Args:  cobra.ExactArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			source, err := readScript(args[0])
			if err != nil {
				return err
			}
			r := c.app.Mesh(source, step, envelopes)
			if err := report(cmd.ErrOrStderr(), r); err != nil {
				return err
			}

			if out == "" {
				return writeMeshes(cmd.OutOrStdout(), r.Meshes)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			if err := writeMeshes(f, r.Meshes); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing output: %w", err)
			}
			return nil
		}),
	}
	cmd.Flags().Int64Var(&step, "step", -1, "export only this step (-1 for all)")
	cmd.Flags().BoolVar(&envelopes, "envelopes", false, "also mesh the envelopes particles were sampled from")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write JSON to this file instead of stdout")
	return cmd
}

func writeMeshes(w io.Writer, meshes []MeshData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meshes); err != nil {
		return fmt.Errorf("encoding meshes: %w", err)
	}
	return nil
}

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate SCRIPT",
		Short: "Evaluate and validate a script without analysing it",
		Args:  cobra.ExactArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			source, err := readScript(args[0])
			if err != nil {
				return err
			}
			r := c.app.Check(source)
			if err := report(cmd.ErrOrStderr(), r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: interaction %q\n", r.Interaction)
			return nil
		}),
	}
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "microgel %s (commit: %s, built: %s)\n", Version, GitCommit, BuildDate)
			return nil
		}),
	}
}
