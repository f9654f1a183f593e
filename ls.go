package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vocos/attendance-go/internal/drive"
	"github.com/vocos/attendance-go/internal/folder"
)

// lsFields is the field mask for folder listings.
const lsFields = "id,name,mimeType,size"

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List entries in the destination folder",
		Long: `List the files in the destination folder. The folder is looked up, never
created; a missing folder lists nothing.`,
		Args: cobra.NoArgs,
		RunE: runLs,
	}
}

// lsItem is the JSON schema for one `ls --json` entry.
type lsItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func runLs(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
	defer stop()

	s, err := newSession(ctx, cc, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.requireAuthorized(); err != nil {
		return err
	}

	folderID, err := s.Folders.Lookup(ctx, cc.Cfg.FolderName)
	if errors.Is(err, folder.ErrFolderNotFound) {
		statusf(cc.Flags.Quiet, "Folder %s does not exist yet.\n", cc.Cfg.FolderName)

		if cc.Flags.JSON {
			return printJSON(cmd.OutOrStdout(), []lsItem{})
		}

		return nil
	}

	if err != nil {
		return err
	}

	files, err := s.Drive.List(ctx, folder.ChildrenQuery(folderID), lsFields)
	if err != nil {
		return fmt.Errorf("listing %s: %w", cc.Cfg.FolderName, err)
	}

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), toLsItems(files))
	}

	printLsTable(cmd.OutOrStdout(), files)

	return nil
}

func toLsItems(files []drive.File) []lsItem {
	items := make([]lsItem, 0, len(files))
	for _, f := range files {
		items = append(items, lsItem{ID: f.ID, Name: f.Name, Size: f.Size})
	}

	return items
}

func printLsTable(w io.Writer, files []drive.File) {
	rows := make([][]string, 0, len(files))

	for _, f := range files {
		size := formatSize(f.Size)
		if f.IsFolder() {
			size = "-"
		}

		rows = append(rows, []string{f.Name, size, f.ID})
	}

	printTable(w, []string{"NAME", "SIZE", "ID"}, rows)
}
