package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "deletex",
		Short: "Import a social-media archive and selectively delete your content",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(importCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(selectCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(serveCmd())

	return root
}

// filterFlags binds the declarative filter options shared by search/select.
type filterFlags struct {
	kinds      []string
	after      string
	before     string
	minLikes   int
	maxLikes   int
	minReposts int
	maxReposts int
	media      bool
	search     string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.kinds, "kind", nil, "post kinds to include (original,repost,reply)")
	cmd.Flags().StringVar(&f.after, "after", "", "only posts created on/after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.before, "before", "", "only posts created on/before this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.minLikes, "min-likes", 0, "minimum like count")
	cmd.Flags().IntVar(&f.maxLikes, "max-likes", 0, "maximum like count")
	cmd.Flags().IntVar(&f.minReposts, "min-reposts", 0, "minimum repost count")
	cmd.Flags().IntVar(&f.maxReposts, "max-reposts", 0, "maximum repost count")
	cmd.Flags().BoolVar(&f.media, "media", false, "only posts with at least one attachment")
	cmd.Flags().StringVar(&f.search, "search", "", "full-text search over post text")
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <tweets.js>",
		Short: "Parse an archive export and load it into the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0])
		},
	}
}

func searchCmd() *cobra.Command {
	var (
		flags      filterFlags
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Browse, filter and full-text-search the imported archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := buildFilter(cmd, &flags)
			if err != nil {
				return err
			}
			return runSearch(f, limit, jsonOutput)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "max posts to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func selectCmd() *cobra.Command {
	var (
		flags        filterFlags
		selectionCap int
		scriptOutput bool
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select all posts matching a filter, up to the selection cap",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := buildFilter(cmd, &flags)
			if err != nil {
				return err
			}
			return runSelect(f, selectionCap, scriptOutput)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&selectionCap, "cap", 0, "selection cap (default: from config)")
	cmd.Flags().BoolVar(&scriptOutput, "script", false, "print the deletion script instead of ids")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store contents by kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the local store from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset()
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
