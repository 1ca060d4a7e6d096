package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bgwastu/deletex/internal/app"
	"github.com/bgwastu/deletex/internal/config"
	"github.com/bgwastu/deletex/internal/store"
	"github.com/bgwastu/deletex/pkg/archive"
	"github.com/bgwastu/deletex/pkg/query"
	"github.com/bgwastu/deletex/pkg/server"
	"github.com/spf13/cobra"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func openApp(ctx context.Context, cfg *config.Config, selectionCap int) (*app.App, store.Store, error) {
	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	if selectionCap <= 0 {
		selectionCap = cfg.Selection.Cap
	}
	a, err := app.New(ctx, db, cfg.Import.BatchSize, selectionCap)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return a, db, nil
}

// buildFilter converts the command flags into a filter specification. Bound
// flags are only included when set, so absent options impose no constraint.
func buildFilter(cmd *cobra.Command, flags *filterFlags) (query.Filter, error) {
	var f query.Filter

	for _, k := range flags.kinds {
		switch kind := archive.PostKind(k); kind {
		case archive.KindOriginal, archive.KindRepost, archive.KindReply:
			f.Kinds = append(f.Kinds, kind)
		default:
			return f, fmt.Errorf("unknown kind %q (want original, repost or reply)", k)
		}
	}

	if flags.after != "" {
		t, err := time.Parse("2006-01-02", flags.after)
		if err != nil {
			return f, fmt.Errorf("parse --after: %w", err)
		}
		f.CreatedAfter = &t
	}
	if flags.before != "" {
		t, err := time.Parse("2006-01-02", flags.before)
		if err != nil {
			return f, fmt.Errorf("parse --before: %w", err)
		}
		f.CreatedBefore = &t
	}

	if cmd.Flags().Changed("min-likes") {
		f.MinLikes = &flags.minLikes
	}
	if cmd.Flags().Changed("max-likes") {
		f.MaxLikes = &flags.maxLikes
	}
	if cmd.Flags().Changed("min-reposts") {
		f.MinReposts = &flags.minReposts
	}
	if cmd.Flags().Changed("max-reposts") {
		f.MaxReposts = &flags.maxReposts
	}

	f.RequireMedia = flags.media
	f.SearchText = flags.search
	return f, nil
}

func runImport(path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read archive %s: %w", path, err)
	}

	ctx := context.Background()
	a, db, err := openApp(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(os.Stderr, "importing %s...\n", path)
	summary, err := a.Import(ctx, payload)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "imported %d posts (%d originals, %d reposts, %d replies), %d media references\n",
		summary.Total, summary.Originals, summary.Reposts, summary.Replies, summary.Media)
	return nil
}

func runSearch(f query.Filter, limit int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	a, db, err := openApp(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := a.ApplyFilter(ctx, f, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if len(res.Posts) == 0 {
		fmt.Printf("no posts match (of %d stored)\n", res.Total)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tLIKES\tREPOSTS\tMEDIA\tCREATED\tTEXT")
	for _, p := range res.Posts {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			p.ID, p.Kind, p.LikeCount, p.RepostCount, len(p.Media),
			p.CreatedAt.Format("2006-01-02 15:04"), truncate(p.Text, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "showing %d of %d matching posts\n", len(res.Posts), res.Total)
	return nil
}

func runSelect(f query.Filter, selectionCap int, scriptOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	a, db, err := openApp(ctx, cfg, selectionCap)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := a.ApplyFilter(ctx, f, 1); err != nil {
		return err
	}

	ids, total, err := a.SelectAll(ctx, func(ids []string, total int) {
		fmt.Fprintf(os.Stderr, "  selected %d of %d...\n", len(ids), total)
	})
	if err != nil {
		return err
	}

	if len(ids) < total {
		fmt.Fprintf(os.Stderr, "selection capped at %d of %d matching posts\n", len(ids), total)
	} else {
		fmt.Fprintf(os.Stderr, "selected %d posts\n", len(ids))
	}

	if scriptOutput {
		js, err := a.Script()
		if err != nil {
			return err
		}
		fmt.Print(js)
		return nil
	}

	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runStats() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	stats, err := db.Stats(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POSTS\tORIGINALS\tREPOSTS\tREPLIES\tMEDIA")
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n",
		stats.Posts, stats.Originals, stats.Reposts, stats.Replies, stats.Media)
	return w.Flush()
}

func runReset() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if err := db.Reset(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "store reset")
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	ctx := context.Background()
	a, db, err := openApp(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(a, port, cfg.Page.Size)
	return srv.ListenAndServe()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
