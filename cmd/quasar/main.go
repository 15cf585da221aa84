package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quasar-data/quasar/internal/render"
	"github.com/quasar-data/quasar/pkg/config"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/expr"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/lazy"
	"github.com/quasar-data/quasar/pkg/logger"
	"github.com/quasar-data/quasar/pkg/qio"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var logLevel string
	var configFile string

	root := &cobra.Command{
		Use:   "quasar",
		Short: "Quasar - columnar query engine for CSV, Parquet, and Arrow files",
		Long: `Quasar reads CSV, Parquet, Arrow IPC, and JSON files into chunked
columnar frames and runs lazy query plans over them with projection and
predicate pushdown.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{Level: logLevel, Encoding: "console"})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "error", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to engine configuration YAML file")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Quasar v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	schemaCmd := &cobra.Command{
		Use:   "schema <file>",
		Short: "Print the schema of a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, err := readFile(cmd.Context(), args[0], nil, 1)
			if err != nil {
				return err
			}
			for _, f := range df.Schema().Fields {
				fmt.Printf("%s: %s\n", f.Name, f.Type)
			}
			return nil
		},
	}
	root.AddCommand(schemaCmd)

	var headRows int
	var headColumns []string
	headCmd := &cobra.Command{
		Use:   "head <file>",
		Short: "Print the first rows of a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, err := readFile(cmd.Context(), args[0], headColumns, headRows)
			if err != nil {
				return err
			}
			fmt.Print(render.Frame(df, headRows))
			return nil
		},
	}
	headCmd.Flags().IntVarP(&headRows, "rows", "n", 10, "Number of rows to show")
	headCmd.Flags().StringSliceVar(&headColumns, "columns", nil, "Columns to show (default all)")
	root.AddCommand(headCmd)

	convertCmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert between CSV, Parquet, and Arrow IPC files",
		Long: `Convert reads the input file and writes it in the format implied by
the output file extension (.csv, .parquet, .arrow).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, err := readFile(cmd.Context(), args[0], nil, 0)
			if err != nil {
				return err
			}
			return writeFile(df, args[1])
		},
	}
	root.AddCommand(convertCmd)

	var explainColumns []string
	explainCmd := &cobra.Command{
		Use:   "explain <file>",
		Short: "Show the query plan a projected scan would run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engineFor(configFile)
			if err != nil {
				return err
			}
			lf, err := scanFile(eng, args[0])
			if err != nil {
				return err
			}
			if len(explainColumns) > 0 {
				exprs := make([]expr.Expr, len(explainColumns))
				for i, c := range explainColumns {
					exprs[i] = expr.Col(c)
				}
				lf = lf.Select(exprs...)
			}
			fmt.Print(lf.Describe())
			return nil
		},
	}
	explainCmd.Flags().StringSliceVar(&explainColumns, "columns", nil, "Columns to project")
	root.AddCommand(explainCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func engineFor(configFile string) (*lazy.Engine, error) {
	if configFile == "" {
		return lazy.DefaultEngine(), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return lazy.NewEngine(cfg), nil
}

// readFile reads a data file eagerly, picking the decoder from the
// file extension. nRows of 0 reads everything.
func readFile(ctx context.Context, path string, columns []string, nRows int) (*frame.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		opts := qio.DefaultCSVOptions()
		opts.Columns = columns
		opts.NRows = nRows
		return qio.ReadCSV(qio.PathOf(path), opts)
	case ".parquet":
		opts := qio.DefaultParquetOptions()
		opts.Columns = columns
		opts.NRows = nRows
		return qio.ReadParquet(ctx, qio.PathOf(path), opts)
	case ".arrow", ".ipc", ".feather":
		df, err := qio.ReadIPC(qio.PathOf(path))
		if err != nil {
			return nil, err
		}
		if len(columns) > 0 {
			if df, err = df.SelectColumns(columns...); err != nil {
				return nil, err
			}
		}
		if nRows > 0 && df.Height() > nRows {
			return df.Slice(0, nRows)
		}
		return df, nil
	case ".json", ".ndjson", ".jsonl":
		return qio.ReadJSON(qio.PathOf(path))
	default:
		return nil, qerrors.Newf(qerrors.ErrorTypeCapability, "unsupported input format: %s", path)
	}
}

func writeFile(df *frame.DataFrame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return qio.WriteCSV(df, f, ',')
	case ".parquet":
		return qio.WriteParquet(df, f)
	case ".arrow", ".ipc", ".feather":
		return qio.WriteIPC(df, f)
	default:
		return qerrors.Newf(qerrors.ErrorTypeCapability, "unsupported output format: %s", path)
	}
}

func scanFile(eng *lazy.Engine, path string) (*lazy.LazyFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return eng.ScanCSV(path, qio.DefaultCSVOptions()), nil
	case ".parquet":
		return eng.ScanParquet(path, qio.DefaultParquetOptions()), nil
	case ".arrow", ".ipc", ".feather":
		return eng.ScanIPC(path), nil
	default:
		return nil, qerrors.Newf(qerrors.ErrorTypeCapability, "unsupported scan format: %s", path)
	}
}
