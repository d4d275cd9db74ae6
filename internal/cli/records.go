package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yegors/maintlog/internal/maintenance"
	"github.com/yegors/maintlog/internal/storage/sqlite"
)

var (
	recordsAircraftID string
	recordsPriority   string
	recordsLimit      int
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List stored maintenance records",
	Long:  `List maintenance records kept by the SQLite sink. Requires storage.enabled = true.`,
	Args:  cobra.NoArgs,
	RunE:  runRecords,
}

var recordStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Change the review status of a record",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecordStatus,
}

func init() {
	recordsCmd.Flags().StringVar(&recordsAircraftID, "aircraft-id", "", "only records for this aircraft")
	recordsCmd.Flags().StringVar(&recordsPriority, "priority", "", "only records of this priority (CRITICAL, HIGH, MEDIUM, LOW)")
	recordsCmd.Flags().IntVar(&recordsLimit, "limit", 20, "maximum number of records")
	recordsCmd.AddCommand(recordStatusCmd)
}

// withRecords opens the record store for one command
func withRecords(fn func(*sqlite.RecordStorage) error) error {
	cfg, log, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	defer log.Sync()

	if !cfg.Storage.Enabled {
		return errors.New("record storage is disabled; set storage.enabled = true in the config")
	}

	db, records, err := openRecords(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(records)
}

func runRecords(cmd *cobra.Command, args []string) error {
	if recordsAircraftID != "" && recordsPriority != "" {
		return errors.New("use --aircraft-id or --priority, not both")
	}
	var priority maintenance.Priority
	if recordsPriority != "" {
		p, err := maintenance.ParsePriority(recordsPriority)
		if err != nil {
			return err
		}
		priority = p
	}

	return withRecords(func(records *sqlite.RecordStorage) error {
		var (
			rows []*sqlite.RecordRow
			err  error
		)
		switch {
		case recordsAircraftID != "":
			rows, err = records.GetRecordsByAircraft(cmd.Context(), recordsAircraftID, recordsLimit)
		case priority != "":
			rows, err = records.GetRecordsByPriority(cmd.Context(), priority, recordsLimit)
		default:
			rows, err = records.GetRecentRecords(cmd.Context(), recordsLimit)
		}
		if err != nil {
			return err
		}
		return printRecords(cmd.OutOrStdout(), rows)
	})
}

func runRecordStatus(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid record id %q", args[0])
	}
	status := strings.TrimSpace(args[1])
	if status == "" {
		return errors.New("status must not be empty")
	}

	return withRecords(func(records *sqlite.RecordStorage) error {
		if err := records.UpdateRecordStatus(cmd.Context(), id, status); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Record %d is now %s\n", id, status)
		return nil
	})
}

func printRecords(out io.Writer, rows []*sqlite.RecordRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No maintenance records.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAIRCRAFT\tPRIORITY\tSTATUS\tLOGGED\tFINDINGS")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%s\t%s\n",
			r.ID,
			r.AircraftID,
			r.Priority.Details().Color,
			r.Priority,
			r.Status,
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			truncate(r.Findings, 60),
		)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
