package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/vango-dev/vbind/pkg/reactive"
	"github.com/vango-dev/vbind/pkg/state"
)

func snapshotCmd(flags *globalFlags) *cobra.Command {
	var (
		in    inputs
		exec  []string
		color bool
		ugly  bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the data of a bound template as JSON",
		Long: `Bind a template and print its data as JSON.

With --assign (the default) the data is read back from server-rendered
markup: v-text and v-model content, v-array lists and v-data declarations.
A data file, when given, provides the initial shape.

Examples:
  vbind snapshot -t rendered.html
  vbind snapshot -t page.html -d data.json --assign=false --exec "count += 1"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closeLog, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			b, err := bindFiles(cmd.Context(), cfg, in, logger, nil)
			if err != nil {
				return err
			}
			for _, code := range exec {
				if err := b.comp.Exec(code); err != nil {
					return err
				}
				if err := b.queue.Drain(); err != nil {
					return err
				}
			}

			out, err := state.ToJSON(snapshot(b.comp.Instance()))
			if err != nil {
				return err
			}
			if !ugly {
				out = pretty.Pretty(out)
			} else {
				out = pretty.Ugly(out)
			}
			if color {
				out = pretty.Color(out, nil)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			if ugly {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.template, "template", "t", "", "Template file (default from vbind.json)")
	cmd.Flags().StringVarP(&in.data, "data", "d", "", "JSON data file giving the initial shape")
	cmd.Flags().BoolVar(&in.assign, "assign", true, "Read server-rendered content into the data")
	cmd.Flags().StringArrayVar(&exec, "exec", nil, "Statement to run before the snapshot (repeatable)")
	cmd.Flags().BoolVar(&color, "color", false, "Colorize the JSON output")
	cmd.Flags().BoolVar(&ugly, "compact", false, "Print compact JSON")

	return cmd
}

// snapshot merges the instance roots into one object.
func snapshot(in *reactive.Instance) *state.Object {
	out := state.NewObject()
	for _, key := range in.Keys() {
		v, _ := in.Lookup(key)
		out.Set(key, v)
	}
	return out
}
