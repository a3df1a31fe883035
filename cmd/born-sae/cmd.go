package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/born-sae/internal/config"
	"github.com/born-ml/born-sae/internal/serialization"
	"github.com/born-ml/born-sae/internal/tensor"
)

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "born-sae",
		Short: "Sparse autoencoder bias layers for Born",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true

			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a layer from a config file and save it",
		Args:  cobra.NoArgs,
		RunE:  newHandler,
	}
	newCmd.Flags().StringP("config", "c", "", "YAML layer config (defaults apply when omitted)")
	newCmd.Flags().StringP("output", "o", "", "Checkpoint file to write")
	newCmd.Flags().String("dtype", "", "Storage type override: float64, float32, float16 or bfloat16")
	_ = newCmd.MarkFlagRequired("output")

	inspectCmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the tensors and metadata of a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectHandler,
	}

	forwardCmd := &cobra.Command{
		Use:   "forward FILE",
		Short: "Run the forward pass of a saved layer on a CSV batch",
		Long: "Run the forward pass of a saved layer on a CSV batch.\n\n" +
			"The CSV has one row per unit and one column per sample. The result is written to stdout in the same layout.",
		Args: cobra.ExactArgs(1),
		RunE: forwardHandler,
	}
	forwardCmd.Flags().StringP("input", "i", "", "CSV batch to read (stdin when omitted)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "born-sae %s\n", serialization.Version)
		},
	}

	rootCmd.AddCommand(newCmd, inspectCmd, forwardCmd, versionCmd)
	return rootCmd
}

func newHandler(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}

	if dtype, _ := cmd.Flags().GetString("dtype"); dtype != "" {
		cfg.Checkpoint.DType = dtype
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	layer := cfg.NewLayer()
	defer layer.Close()

	output, _ := cmd.Flags().GetString("output")
	if err := serialization.SaveLayer(output, layer, serialization.SaveOptions{DType: cfg.DType()}); err != nil {
		return err
	}

	slog.Info("created layer", "file", output, "out_size", layer.OutSize(),
		"sample_size", layer.SampleSize(), "optimizer", layer.Optimizer().Name())
	return nil
}

func inspectHandler(cmd *cobra.Command, args []string) error {
	r, err := serialization.NewReader(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "model:    %s\n", h.ModelType)
	fmt.Fprintf(out, "format:   v%d (born-sae %s)\n", h.FormatVersion, h.Version)
	fmt.Fprintf(out, "created:  %s\n", h.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if h.CheckpointMeta != nil {
		fmt.Fprintf(out, "optimizer: %s (state saved: %t)\n", h.CheckpointMeta.OptimizerType, h.CheckpointMeta.IsCheckpoint)
	}

	keys := make([]string, 0, len(h.Metadata))
	for k := range h.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s: %s\n", k, h.Metadata[k])
	}
	fmt.Fprintln(out)

	data := make([][]string, 0, len(h.Tensors))
	for _, t := range h.Tensors {
		data = append(data, []string{t.Name, t.DType, fmt.Sprint(t.Shape), strconv.FormatInt(t.Size, 10)})
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"NAME", "DTYPE", "SHAPE", "BYTES"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

func forwardHandler(cmd *cobra.Command, args []string) error {
	layer, err := serialization.OpenLayer(args[0])
	if err != nil {
		return err
	}
	defer layer.Close()

	var in io.Reader = cmd.InOrStdin()
	if path, _ := cmd.Flags().GetString("input"); path != "" {
		//nolint:gosec // G304: input path comes from the command line
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	batch, err := readCSV(in)
	if err != nil {
		return err
	}
	if batch.Rows() != layer.OutSize() {
		return fmt.Errorf("input has %d rows, layer expects %d", batch.Rows(), layer.OutSize())
	}

	return writeCSV(cmd.OutOrStdout(), layer.Forward(batch))
}

// readCSV parses a CSV batch, one row per unit.
func readCSV(r io.Reader) (*tensor.Matrix, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("empty CSV input")
	}

	rows := make([][]float64, len(records))
	for i, rec := range records {
		rows[i] = make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %d: %w", i+1, j+1, err)
			}
			rows[i][j] = v
		}
	}
	return tensor.FromRows(rows)
}

func writeCSV(w io.Writer, m *tensor.Matrix) error {
	cw := csv.NewWriter(w)
	for i := 0; i < m.Rows(); i++ {
		row := m.Row(i)
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
