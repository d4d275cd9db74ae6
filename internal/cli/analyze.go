package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yegors/maintlog/internal/workflow"
)

var (
	analyzeAircraftID       string
	analyzePriorityOverride string
	analyzeJSON             bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze one maintenance log image",
	Long: `Run the agent pipeline on a PNG or JPEG log image and print each agent's reply
as "[HH:MM:SS] AGENT: message", or as JSON lines with --json. Logs go to stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeAircraftID, "aircraft-id", "", "aircraft identifier, if known")
	analyzeCmd.Flags().StringVar(&analyzePriorityOverride, "priority-override", "", "priority hint passed to the agents as text")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print transcript lines as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := workflow.Request{
		Image:            data,
		AircraftID:       analyzeAircraftID,
		PriorityOverride: analyzePriorityOverride,
	}
	return printTranscript(cmd.OutOrStdout(), a.runner.Run(ctx, req), analyzeJSON)
}

// printTranscript writes every line as it arrives and returns the run's error, if any
func printTranscript(w io.Writer, lines iter.Seq2[workflow.TranscriptLine, error], asJSON bool) error {
	enc := json.NewEncoder(w)
	for line, err := range lines {
		if err != nil {
			return err
		}
		if asJSON {
			if err := enc.Encode(line); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintln(w, line.Legacy()); err != nil {
			return err
		}
	}
	return nil
}
