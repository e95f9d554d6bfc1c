package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/xsltlens/internal/config"
)

// writeReport serializes an analysis report in the configured output format.
func writeReport(w io.Writer, cfg *config.Config, report interface{}) error {
	switch cfg.Output.Format {
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(report)
	case "json":
		encoder := json.NewEncoder(w)
		if cfg.Output.Pretty {
			encoder.SetIndent("", "  ")
		}
		return encoder.Encode(report)
	default:
		return fmt.Errorf("unsupported output format: %s", cfg.Output.Format)
	}
}
