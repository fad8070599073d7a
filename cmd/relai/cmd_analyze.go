package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"relationshipai/apps/backend/internal/analysis"
	"relationshipai/apps/backend/internal/client"
	"relationshipai/apps/backend/internal/presenter"
)

const defaultEndpoint = "http://localhost:8000/functions/v1/analyze-message"

type analyzeOptions struct {
	role     string
	tone     string
	context  string
	endpoint string
	token    string
	output   string
	timeout  time.Duration
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Analyze a message you want to send or respond to",
		Long: `Send a message to the analysis endpoint and print the emotional analysis,
message suggestions and actions.

Text may be given as arguments or piped on stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				raw, err := readStdin(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = raw
			}
			return runAnalyze(cmd, opts, text)
		},
	}

	cmd.Flags().StringVar(&opts.role, "role", "", "your relationship role (partner, spouse, dating, ...)")
	cmd.Flags().StringVar(&opts.tone, "tone", "", "preferred tone for suggestions")
	cmd.Flags().StringVar(&opts.context, "context", "", "recent chat context")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", envOr("RELAI_ENDPOINT", defaultEndpoint), "analysis endpoint URL")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("RELAI_TOKEN"), "bearer token for the endpoint")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "request timeout (0 waits indefinitely)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions, text string) error {
	switch opts.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q", opts.output)
	}

	builderOpts := []client.Option{client.WithToken(opts.token)}
	if opts.timeout > 0 {
		builderOpts = append(builderOpts, client.WithTimeout(opts.timeout))
	}
	builder := client.New(opts.endpoint, builderOpts...)
	store := presenter.NewStore(nil)

	view, err := store.Submit(cmd.Context(), builder, analysis.Request{
		Text:         text,
		ChatSnippets: opts.context,
		Meta:         analysis.UserMeta{RelationshipRole: opts.role, PreferredTone: opts.tone},
	})
	if printErr := printView(cmd.OutOrStdout(), opts.output, view); printErr != nil {
		return printErr
	}
	if errors.Is(err, analysis.ErrValidation) {
		return shownError{err: err}
	}
	return err
}

// printView writes the full analysis in structured formats only when it is
// displayed; blocked and escalated results always print as text notices.
func printView(w io.Writer, format string, view presenter.View) error {
	if view.Analysis == nil || format == "text" {
		_, err := fmt.Fprintln(w, presenter.Render(view))
		return err
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view.Analysis)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(view.Analysis)
	}
}

func readStdin(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(raw), nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
