// Command relai submits a message to the analysis endpoint and prints the result.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relai",
		Short:         "Relationship message analysis from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// shownError is an error the user already saw as a rendered notice.
type shownError struct{ err error }

func (e shownError) Error() string { return e.err.Error() }
func (e shownError) Unwrap() error { return e.err }

func reportError(w io.Writer, err error) {
	var shown shownError
	if errors.As(err, &shown) {
		return
	}
	fmt.Fprintln(w, "error:", err)
}
