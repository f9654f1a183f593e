package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/vocos/attendance-go/internal/history"
)

const defaultHistoryLimit = 20

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent uploads recorded on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "number of entries (0 for all)")

	return cmd
}

// historyItem is the JSON schema for one `history --json` entry.
type historyItem struct {
	SaveID      string `json:"save_id"`
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
	FolderID    string `json:"folder_id"`
	WebViewLink string `json:"web_view_link,omitempty"`
	Size        int64  `json:"size"`
	UploadedAt  string `json:"uploaded_at"`
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if !cc.Cfg.History {
		return errors.New("history is disabled (history = false or --no-history)")
	}

	j, err := history.Open(ctx, cc.Cfg.HistoryPath, cc.Logger)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List(ctx, limit)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), toHistoryItems(entries))
	}

	printHistoryTable(cmd.OutOrStdout(), entries)

	return nil
}

func toHistoryItems(entries []history.Entry) []historyItem {
	items := make([]historyItem, 0, len(entries))

	for _, e := range entries {
		items = append(items, historyItem{
			SaveID:      e.SaveID.String(),
			FileID:      e.FileID,
			FileName:    e.FileName,
			FolderID:    e.FolderID,
			WebViewLink: e.WebViewLink,
			Size:        e.Size,
			UploadedAt:  e.UploadedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}

	return items
}

func printHistoryTable(w io.Writer, entries []history.Entry) {
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		rows = append(rows, []string{formatTime(e.UploadedAt), e.FileName, formatSize(e.Size), e.FileID})
	}

	printTable(w, []string{"UPLOADED", "NAME", "SIZE", "FILE ID"}, rows)
}
