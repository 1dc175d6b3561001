package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var notesCmd = &cobra.Command{
	Use:     "notes",
	GroupID: "query",
	Short:   "Search, look up and list notes",
}

var notesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over note names and bodies",
	Long: `Full-text search using SQLite FTS syntax.

Example usage:
  amplenote-mcp notes search roadmap
  amplenote-mcp notes search '"weekly review"'
  amplenote-mcp notes search 'plan*'`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		offset, _ := cmd.Flags().GetInt("offset")

		_, notes := newServices()
		result, err := notes.SearchNotes(cmd.Context(), strings.Join(args, " "), limitFlag(cmd, settings.DefaultSearchLimit), offset)
		if err != nil {
			fatal(err)
		}
		render(cmd, result)
	},
}

var notesGetCmd = &cobra.Command{
	Use:   "get <uuid>",
	Short: "Show a note by remote or local uuid",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, notes := newServices()
		note, ok, err := notes.NoteByUUID(cmd.Context(), args[0])
		if err != nil {
			fatal(err)
		}
		if !ok {
			render(cmd, nil)
			return
		}
		render(cmd, note)
	},
}

var notesFindCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Show the first note whose name contains the given text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, notes := newServices()
		note, ok, err := notes.NoteByName(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			fatal(err)
		}
		if !ok {
			render(cmd, nil)
			return
		}
		render(cmd, note)
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes ordered by name",
	Run: func(cmd *cobra.Command, args []string) {
		offset, _ := cmd.Flags().GetInt("offset")

		_, notes := newServices()
		result, err := notes.ListNotes(cmd.Context(), limitFlag(cmd, settings.DefaultListLimit), offset)
		if err != nil {
			fatal(err)
		}
		render(cmd, result)
	},
}

var notesRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently modified notes",
	Run: func(cmd *cobra.Command, args []string) {
		_, notes := newServices()
		result, err := notes.RecentNotes(cmd.Context(), limitFlag(cmd, settings.DefaultListLimit))
		if err != nil {
			fatal(err)
		}
		render(cmd, result)
	},
}

var notesRefsCmd = &cobra.Command{
	Use:   "refs <uuid>",
	Short: "Show the notes linking to and linked from a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, notes := newServices()
		result, err := notes.NoteReferences(cmd.Context(), args[0])
		if err != nil {
			fatal(err)
		}
		render(cmd, result)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{notesSearchCmd, notesListCmd} {
		cmd.Flags().Int("limit", 0, "Maximum number of notes (default from settings)")
		cmd.Flags().Int("offset", 0, "Number of notes to skip")
	}
	notesRecentCmd.Flags().Int("limit", 0, "Maximum number of notes (default from settings)")

	notesCmd.AddCommand(notesSearchCmd)
	notesCmd.AddCommand(notesGetCmd)
	notesCmd.AddCommand(notesFindCmd)
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesRecentCmd)
	notesCmd.AddCommand(notesRefsCmd)
	rootCmd.AddCommand(notesCmd)
}
