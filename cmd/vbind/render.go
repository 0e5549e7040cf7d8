package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vbind/internal/errors"
)

func renderCmd(flags *globalFlags) *cobra.Command {
	var (
		in     inputs
		output string
		body   bool
		exec   []string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a template with JSON data",
		Long: `Bind a template to JSON data and print the resulting HTML.

Statements given with --exec run after the initial render, in order, the
same way event handlers do.

Examples:
  vbind render -t page.html -d data.json
  vbind render -t page.html -d data.json --exec "items.append('x')" -o out.html`,
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

			html := b.doc.Render()
			if body {
				html = b.doc.RenderBody()
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), html)
				return nil
			}
			if err := os.WriteFile(output, []byte(html+"\n"), 0644); err != nil {
				return errors.New(errors.CodeInvalidInput).WithDetailf("cannot write %q", output).Wrap(err)
			}
			success(cmd, "Rendered %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.template, "template", "t", "", "Template file (default from vbind.json)")
	cmd.Flags().StringVarP(&in.data, "data", "d", "", "JSON data file (default from vbind.json)")
	cmd.Flags().BoolVar(&in.assign, "assign", false, "Read server-rendered content into the data instead of rendering")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write HTML to this file instead of stdout")
	cmd.Flags().BoolVar(&body, "body", false, "Print only the body content")
	cmd.Flags().StringArrayVar(&exec, "exec", nil, "Statement to run after binding (repeatable)")

	return cmd
}
