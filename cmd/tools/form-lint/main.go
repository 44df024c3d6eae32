// form-lint checks, renders and normalizes form definition files (YAML or JSON).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/connectors"
	"form-connectors/internal/form"
)

var (
	renderValues    []string
	renderTimestamp string
)

var rootCmd = &cobra.Command{
	Use:           "form-lint",
	Short:         "Validate, render and normalize form definitions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Report field, variable name and template problems",
	Long: `Checks a form definition without a connector catalog.

Connector type and instance selection is not checked. The command exits
non-zero when the form has a problem that would block saving it.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Print the rendered payload of every connector",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Print the definition as the server would store it",
	Args:  cobra.ExactArgs(1),
	RunE:  runNormalize,
}

func init() {
	renderCmd.Flags().StringArrayVar(&renderValues, "values", nil, "field value as key=value (repeatable)")
	renderCmd.Flags().StringVar(&renderTimestamp, "timestamp", "", "submission timestamp (RFC 3339, defaults to now)")
	rootCmd.AddCommand(validateCmd, renderCmd, normalizeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadFile(args[0])
	if err != nil {
		return err
	}

	findings := Lint(cfg)
	out := cmd.OutOrStdout()
	if len(findings) == 0 {
		fmt.Fprintln(out, "no problems found")
		return nil
	}
	for _, f := range findings {
		fmt.Fprintln(out, f.String())
	}
	if HasErrors(findings) {
		return fmt.Errorf("%s has problems that block saving", args[0])
	}
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadFile(args[0])
	if err != nil {
		return err
	}
	values, err := parseValues(renderValues)
	if err != nil {
		return err
	}
	ts := renderTimestamp
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}

	var broken []string
	for _, r := range Render(cfg, values, ts) {
		fmt.Fprintf(cmd.OutOrStdout(), "# %s (%s)\n%s\n", r.Label, r.ConnectorTypeID, r.Payload)
		// webhook bodies are sent verbatim
		if r.ConnectorTypeID != connectors.TypeWebhook && !json.Valid([]byte(r.Payload)) {
			broken = append(broken, r.Label)
		}
	}
	if len(broken) > 0 {
		return errors.NewPayloadInvalidError("rendered payload is not valid JSON: " + strings.Join(broken, ", "))
	}
	return nil
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadFile(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(form.Serialize(cfg))
}

func parseValues(pairs []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --values %q, expected key=value", p)
		}
		values[strings.TrimSpace(k)] = v
	}
	return values, nil
}
