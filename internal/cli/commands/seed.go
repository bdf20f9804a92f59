package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// NewSeedCommand creates the CSV loader command.
func NewSeedCommand() *cobra.Command {
	var tableName string

	cmd := &cobra.Command{
		Use:   "seed [file...]",
		Short: "Load CSV files into the database",
		Long: `Load CSV files into the configured table. Without arguments, every
*.csv file under the seeds directory is loaded; the table name defaults
to the file's base name when more than one file is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			logger := GetLogger(cmd.Context())

			p, err := newPipeline(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			files := args
			if len(files) == 0 {
				files, err = findSeedFiles(cfg.Seeds.Dir)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					return fmt.Errorf("no CSV files found in %s", cfg.Seeds.Dir)
				}
			}

			out := cmd.OutOrStdout()
			for _, file := range files {
				table := tableName
				if table == "" {
					if len(files) == 1 {
						table = cfg.Seeds.Table
					} else {
						table = strings.TrimSuffix(filepath.Base(file), ".csv")
					}
				}
				if err := p.Adapter.LoadCSV(cmd.Context(), table, file); err != nil {
					return fmtErr(fmt.Sprintf("loading %s into %s", file, table), err)
				}
				_, _ = fmt.Fprintf(out, "Loaded %s into %s\n", file, table)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tableName, "table", "", "target table (default from config)")
	return cmd
}

func findSeedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmtErr("reading seeds directory", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
