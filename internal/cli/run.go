package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/queryflow/internal/pipeline"
	"github.com/leapstack-labs/queryflow/internal/timezone"
	"github.com/leapstack-labs/queryflow/pkg/core"
	"github.com/leapstack-labs/queryflow/pkg/driver"
	"github.com/leapstack-labs/queryflow/pkg/metadata"
	"github.com/leapstack-labs/queryflow/pkg/writer"
)

// newRunCommand creates the run command: execute one query and stream the
// result to stdout.
func newRunCommand(cfgFile *string) *cobra.Command {
	var queryFile string

	cmd := &cobra.Command{
		Use:   "run [query-json]",
		Short: "Execute a query and stream the result",
		Long: `Execute a query described as JSON and stream the result to stdout.

The query is read from the argument, from --file, or from stdin:

  queryflow run '{"type":"query","database":1,"body":{"source_table":1,"fields":[{"type":"field","id":1}]}}'
  queryflow run --file query.json
  cat query.json | queryflow run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}

			q, err := readQuery(args, queryFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			logger := newLogger(cfg.Verbose)

			store := metadata.NewSQLiteStore(logger)
			if err := store.Open(cfg.MetadataPath); err != nil {
				return fmt.Errorf("open metadata store: %w", err)
			}
			defer store.Close()
			if err := store.Migrate(); err != nil {
				return fmt.Errorf("migrate metadata store: %w", err)
			}

			drv, err := driver.New(cfg.Target.Type, logger)
			if err != nil {
				return err
			}
			if err := drv.Connect(cmd.Context(), cfg.Target.ToDriverConfig()); err != nil {
				return fmt.Errorf("connect %s: %w", cfg.Target.Type, err)
			}
			defer drv.Close()
			if setter, ok := drv.(driver.FieldResolverSetter); ok {
				setter.SetFieldResolver(store)
			}

			resolver := pipeline.StaticResolver{core.DatabaseID(cfg.DatabaseID): drv}
			p := pipeline.New(resolver, pipeline.DefaultStages(resolver, store, timezone.System{}), logger)

			w, err := writer.New(cfg.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return p.Run(cmd.Context(), q, w)
		},
	}

	cmd.Flags().StringVar(&queryFile, "file", "", "Read the query JSON from a file")
	return cmd
}

// readQuery decodes the query JSON from the argument, a file, or stdin, in
// that order of preference.
func readQuery(args []string, path string, stdin io.Reader) (*core.Query, error) {
	var data []byte
	var err error
	switch {
	case len(args) == 1:
		data = []byte(args[0])
	case path != "":
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read query file: %w", err)
		}
	default:
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read query from stdin: %w", err)
		}
	}

	var q core.Query
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}
	return &q, nil
}
