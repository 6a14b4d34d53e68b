package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"MiniTienda/internal/config"
	"MiniTienda/internal/inventory"
)

// newExportCmd writes the ledger as CSV straight from the configured store,
// without starting the API and without touching the stored data.
func newExportCmd(v *viper.Viper) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the sales history as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			repo, closeRepo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			sales, err := repo.LoadSales(cmd.Context())
			if errors.Is(err, inventory.ErrStoreMissing) || (err == nil && len(sales) == 0) {
				return errors.New("no hay ventas registradas")
			}
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := inventory.WriteSalesCSV(&buf, sales, loc); err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d ventas exportadas a %s\n", len(sales), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}
