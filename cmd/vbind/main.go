package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vbind/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦┌┐ ┬┌┐┌┌┬┐
  ╚╗╔╝├┴┐││││ ││
   ╚╝ └─┘┴┘└┘─┴┘
`

// globalFlags are shared by every command.
type globalFlags struct {
	config   string
	mode     string
	logLevel string
	logFile  string
	errFmt   string
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and reports a failure on stderr in the format chosen
// by --error-format.
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		format, _ := rootCmd.PersistentFlags().GetString("error-format")
		printError(stderr, err, format)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error, format string) {
	if format == "json" {
		fmt.Fprintln(w, errors.FromError(err, errors.CodeInvalidInput).FormatJSON())
		return
	}
	errors.FprintError(w, err)
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vbind",
		Short: "Reactive data binding for server-held HTML",
		Long: `vbind binds JSON data to HTML templates annotated with v-* attributes.

Templates can be rendered once, read back into data from server-rendered
markup, or served live: browsers forward their events over a websocket and
receive the re-rendered page after every change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Path to vbind.json (default: search from the working directory)")
	rootCmd.PersistentFlags().StringVar(&flags.mode, "mode", "", "Array notification mode: native or fallback")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Append JSON log records to this file")
	rootCmd.PersistentFlags().StringVar(&flags.errFmt, "error-format", "text", "Error output: text or json")

	rootCmd.AddCommand(
		renderCmd(flags),
		snapshotCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// printBanner prints the ASCII art banner.
func printBanner(cmd *cobra.Command) {
	fmt.Fprint(cmd.OutOrStdout(), banner)
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", fmt.Sprintf(format, args...))
}
