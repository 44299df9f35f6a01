package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evalgo.org/rdfendpoint/auth"
	"evalgo.org/rdfendpoint/internal/domain"
)

var (
	journalFrom    string
	journalTo      string
	journalSubject string
	journalFailed  bool
	journalKeep    int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Search the update journal",
	Long: `Print the journaled updates of a date range as JSON, most recent first.
The journal directory is the one given to serve --update-log.

Examples:
  rdfendpoint journal --update-log ./journal
  rdfendpoint journal --update-log ./journal --from 2026-01-01 --to 2026-01-31 --failed`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd.Flags(), map[string]string{"serve.update-log": "update-log"})
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := openJournal()
		if err != nil {
			return err
		}

		// Default to the last seven days
		if journalFrom == "" {
			journalFrom = time.Now().AddDate(0, 0, -7).Format("2006-01-02")
		}
		if journalTo == "" {
			journalTo = time.Now().Format("2006-01-02")
		}

		criteria := auth.AuditSearchCriteria{
			StartDate: journalFrom,
			EndDate:   journalTo,
			Subject:   journalSubject,
		}
		if journalFailed {
			success := false
			criteria.Success = &success
		}

		entries, err := logger.SearchEntries(criteria)
		if err != nil {
			return domain.NewValidationError("journal", err.Error())
		}

		// Reverse entries to show most recent first
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"start_date": journalFrom,
			"end_date":   journalTo,
			"count":      len(entries),
			"entries":    entries,
		})
	},
}

var journalRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Remove journal files older than --keep days",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd.Flags(), map[string]string{"serve.update-log": "update-log"})
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := openJournal()
		if err != nil {
			return err
		}
		removed, err := logger.RotateOldLogs(journalKeep)
		if err != nil {
			return err
		}
		console.Info("🧹 Removed %s journal files older than %d days", console.Bold(removed), journalKeep)
		return nil
	},
}

func openJournal() (*auth.AuditLogger, error) {
	dir := viper.GetString("serve.update-log")
	if dir == "" {
		return nil, domain.NewUsageError("--update-log is required")
	}
	logger, err := auth.NewAuditLogger(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return logger, nil
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRotateCmd)

	for _, c := range []*cobra.Command{journalCmd, journalRotateCmd} {
		c.Flags().String("update-log", "", "journal directory")
	}
	journalCmd.Flags().StringVar(&journalFrom, "from", "", "first day, YYYY-MM-DD (default a week ago)")
	journalCmd.Flags().StringVar(&journalTo, "to", "", "last day, YYYY-MM-DD (default today)")
	journalCmd.Flags().StringVar(&journalSubject, "subject", "", "only entries of this subject")
	journalCmd.Flags().BoolVar(&journalFailed, "failed", false, "only failed updates")
	journalRotateCmd.Flags().IntVar(&journalKeep, "keep", 90, "days of journal to keep")
}
