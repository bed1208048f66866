package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	auditpg "github.com/frahmantamala/workforce-console/internal/audit/postgres"
	auditDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/audit"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var (
	auditLimit  int
	auditOutput string
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the newest audit records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		records, err := auditpg.NewStore(db).List(ctx, auditLimit)
		if err != nil {
			return err
		}
		return writeRecords(os.Stdout, auditOutput, records)
	},
}

func writeRecords(w io.Writer, format string, records []auditDatamodel.Record) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(records)
	default:
		return fmt.Errorf("unsupported output %q, want json or yaml", format)
	}
}

func init() {
	auditListCmd.Flags().IntVarP(&auditLimit, "limit", "n", auditpg.DefaultListLimit, "number of records")
	auditListCmd.Flags().StringVarP(&auditOutput, "output", "o", "json", "json or yaml")

	auditCmd.AddCommand(auditListCmd)
	rootCmd.AddCommand(auditCmd)
}
