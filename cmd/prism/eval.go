package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/internal/function"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/expr"
	"github.com/ajitpratap0/prism/pkg/logger"
	"github.com/ajitpratap0/prism/pkg/observability"
	"github.com/ajitpratap0/prism/pkg/projector"
	"github.com/ajitpratap0/prism/pkg/selection"
)

const csvChunkSize = 1024

type evalOptions struct {
	input      string
	exprs      string
	rows       string
	format     string
	configPath string
	logLevel   string
	dumpIR     bool
}

func newEvalCmd() *cobra.Command {
	opts := &evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate expressions over an Arrow or CSV file",
		Long: `Evaluate a YAML list of expressions over every record batch of an input file.
Files ending in .csv are read with type inference; anything else is read as an
Arrow IPC file.

Example:
  prism eval --input data.csv --exprs exprs.yaml --rows 0,2,5 --format table`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Path to an Arrow IPC or CSV file (required)")
	cmd.Flags().StringVarP(&opts.exprs, "exprs", "e", "", "Path to the YAML expression list (required)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("exprs")

	cmd.Flags().StringVar(&opts.rows, "rows", "", "Comma-separated row numbers to evaluate (default: all rows)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format (json, table)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to the engine configuration YAML file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "error", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.dumpIR, "dump-ir", false, "Print the compiled routine before the results")

	return cmd
}

func runEval(ctx context.Context, stdout, stderr io.Writer, opts *evalOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.format != "json" && opts.format != "table" {
		return fmt.Errorf("unsupported output format %q", opts.format)
	}
	rows, err := parseRows(opts.rows)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx = logger.WithQueryID(ctx, filepath.Base(opts.exprs))
	log := logger.WithContext(ctx)

	shutdown, err := observability.InitTracing(cfg.Tracing, "prism", stderr)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.Background()) }()

	factory, err := projector.NewFactoryFromConfig(cfg, projector.WithLogger(log.Named("projector")))
	if err != nil {
		return err
	}
	defer factory.Close()

	exprDoc, err := os.ReadFile(opts.exprs)
	if err != nil {
		return fmt.Errorf("failed to read expressions file %s: %w", opts.exprs, err)
	}

	mem := memory.NewGoAllocator()
	src, err := openSource(opts.input, mem)
	if err != nil {
		return err
	}
	defer src.Close()

	mode := selection.ModeNone
	if rows != nil {
		mode = selection.ModeUint32
	}

	var (
		p      *projector.Projector
		sink   resultSink
		offset int64
	)
	for src.Next() {
		batch := src.Record()
		if p == nil {
			exprs, err := expr.ParseYAML(exprDoc, batch.Schema(), function.Default().ReturnType)
			if err != nil {
				return err
			}
			p, err = factory.MakeWithMode(ctx, batch.Schema(), exprs, mode, cfg.Configuration())
			if err != nil {
				return err
			}
			if opts.dumpIR {
				fmt.Fprintln(stdout, p.DumpIR())
			}
			sink = newSink(opts.format, stdout, p.OutputFields())
		}

		n := batch.NumRows()
		if err := evalBatch(ctx, p, batch, rows, offset, mem, sink); err != nil {
			return err
		}
		log.Debug("evaluated batch", zap.Int64("offset", offset), zap.Int64("rows", n))
		offset += n
	}
	if err := src.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.input, err)
	}
	if sink == nil {
		return fmt.Errorf("input %s has no record batches", opts.input)
	}
	return sink.Close()
}

// evalBatch evaluates p over batch, restricted to the requested global row
// numbers that fall inside it, and writes the results to sink.
func evalBatch(ctx context.Context, p *projector.Projector, batch arrow.Record, rows []uint64, offset int64, mem memory.Allocator, sink resultSink) error {
	var sel selection.Vector
	if rows != nil {
		var local []uint64
		for _, r := range rows {
			if r >= uint64(offset) && r < uint64(offset+batch.NumRows()) {
				local = append(local, r-uint64(offset))
			}
		}
		if len(local) == 0 {
			return nil
		}
		var err error
		if sel, err = selection.FromIndices(selection.ModeUint32, local, mem); err != nil {
			return err
		}
		defer sel.Release()
	}

	out, err := p.Evaluate(ctx, batch, sel, mem)
	if err != nil {
		return err
	}
	defer func() {
		for _, a := range out {
			a.Release()
		}
	}()
	return sink.Write(out)
}

// parseRows parses a comma-separated list of row numbers. An empty list
// means every row and yields nil.
func parseRows(s string) ([]uint64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	rows := make([]uint64, 0, len(parts))
	for _, part := range parts {
		r, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid row number %q: %w", part, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// batchSource iterates the record batches of an input file. Records are
// owned by the source and valid until the next call to Next.
type batchSource interface {
	Next() bool
	Record() arrow.Record
	Err() error
	Close() error
}

func openSource(path string, mem memory.Allocator) (batchSource, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open input %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		r := csv.NewInferringReader(f,
			csv.WithHeader(true),
			csv.WithChunk(csvChunkSize),
			csv.WithAllocator(mem),
		)
		return &csvSource{file: f, reader: r}, nil
	}

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}
	return &ipcSource{file: f, reader: r, index: -1}, nil
}

type csvSource struct {
	file   *os.File
	reader *csv.Reader
}

func (s *csvSource) Next() bool           { return s.reader.Next() }
func (s *csvSource) Record() arrow.Record { return s.reader.Record() }
func (s *csvSource) Err() error           { return s.reader.Err() }

func (s *csvSource) Close() error {
	s.reader.Release()
	return s.file.Close()
}

type ipcSource struct {
	file   *os.File
	reader *ipc.FileReader
	index  int
	record arrow.Record
	err    error
}

func (s *ipcSource) Next() bool {
	if s.err != nil || s.index+1 >= s.reader.NumRecords() {
		return false
	}
	s.index++
	s.record, s.err = s.reader.Record(s.index)
	return s.err == nil
}

func (s *ipcSource) Record() arrow.Record { return s.record }
func (s *ipcSource) Err() error           { return s.err }

func (s *ipcSource) Close() error {
	if err := s.reader.Close(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

// resultSink renders evaluated output arrays.
type resultSink interface {
	Write(columns []arrow.Array) error
	Close() error
}

func newSink(format string, w io.Writer, fields []arrow.Field) resultSink {
	if format == "table" {
		return newTableSink(w, fields)
	}
	return &jsonSink{enc: json.NewEncoder(w), fields: fields}
}

// jsonSink writes one JSON object per row.
type jsonSink struct {
	enc    *json.Encoder
	fields []arrow.Field
}

func (s *jsonSink) Write(columns []arrow.Array) error {
	if len(columns) == 0 {
		return nil
	}
	for i := 0; i < columns[0].Len(); i++ {
		row := make(map[string]interface{}, len(columns))
		for c, col := range columns {
			row[s.fields[c].Name] = col.GetOneForMarshal(i)
		}
		if err := s.enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
	}
	return nil
}

func (s *jsonSink) Close() error { return nil }

// tableSink buffers rows and renders them as one table on Close.
type tableSink struct {
	table *tablewriter.Table
}

func newTableSink(w io.Writer, fields []arrow.Field) *tableSink {
	table := tablewriter.NewWriter(w)
	table.SetColWidth(24)
	table.SetRowLine(false)
	table.SetAutoFormatHeaders(false)

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	table.SetHeader(header)
	return &tableSink{table: table}
}

func (s *tableSink) Write(columns []arrow.Array) error {
	if len(columns) == 0 {
		return nil
	}
	for i := 0; i < columns[0].Len(); i++ {
		row := make([]string, len(columns))
		for c, col := range columns {
			if col.IsNull(i) {
				row[c] = "NULL"
				continue
			}
			row[c] = col.ValueStr(i)
		}
		s.table.Append(row)
	}
	return nil
}

func (s *tableSink) Close() error {
	s.table.Render()
	return nil
}
