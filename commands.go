package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"chasopis/internal/analytics"
	"chasopis/internal/api"
	"chasopis/internal/logger"
	"chasopis/internal/models"
	"chasopis/internal/pagination"
)

const titleWidth = 60

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, visit recorder and feed importer",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.recorder.Start()
	if len(a.cfg.Feeds) > 0 {
		a.importer.Start()
	}

	server := api.NewServer(a.cfg, api.Deps{
		Catalog:   a.catalog,
		Visits:    a.recorder,
		Analytics: a.analytics,
		Importer:  a.importer,
		Store:     a.store,
		Registry:  a.registry,
	}, a.log)

	a.log.Info("Starting chasopis",
		logger.Int("port", a.cfg.Port),
		logger.String("data_dir", a.cfg.DataDir),
		logger.Duration("cache_ttl", a.cfg.CacheTTL),
		logger.Duration("import_interval", a.cfg.ImportInterval))

	err = server.Run(ctx)

	a.log.Info("Received shutdown signal, stopping services")
	a.importer.Stop()
	a.recorder.Stop()
	return err
}

func statsCommand() *cobra.Command {
	var since string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the analytics dashboard as JSON",
		Example: `  chasopis stats --since 24h
  chasopis stats --since 7d`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := analytics.ParseRange(since)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			dashboard, err := a.analytics.Dashboard(cmd.Context(), time.Now().Add(-d))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dashboard)
		},
	}
	cmd.Flags().StringVar(&since, "since", "24h", "Range to aggregate: 24h, 7d, 30d or a duration")
	return cmd
}

type articlesOptions struct {
	search   string
	sort     string
	section  int64
	authors  []string
	places   []string
	subjects []string
	tags     []string
	pages    int
}

func (o articlesOptions) filters() models.FilterState {
	toOptions := func(values []string) []models.Option {
		var opts []models.Option
		for _, v := range values {
			opts = append(opts, models.Option{Label: v, Value: v})
		}
		return opts
	}

	f := models.FilterState{
		Authors:  toOptions(o.authors),
		Places:   toOptions(o.places),
		Subjects: toOptions(o.subjects),
		Tags:     toOptions(o.tags),
	}
	if o.section > 0 {
		f.SectionID = &o.section
	}
	return f
}

func articlesCommand() *cobra.Command {
	var opts articlesOptions
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "List articles page by page",
		Example: `  chasopis articles --search мінск --sort likes
  chasopis articles --section 2 --tag гісторыя --pages 3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			articles, err := loadPages(cmd.Context(), a.catalog.List, opts)
			if err != nil {
				return err
			}
			renderArticles(cmd, articles)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.search, "search", "q", "", "Free text search")
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", string(models.SortNewest), "newest, oldest, views or likes")
	cmd.Flags().Int64Var(&opts.section, "section", 0, "Section id")
	cmd.Flags().StringArrayVar(&opts.authors, "author", nil, "Author name (repeatable)")
	cmd.Flags().StringArrayVar(&opts.places, "place", nil, "Place name (repeatable)")
	cmd.Flags().StringArrayVar(&opts.subjects, "subject", nil, "Subject name (repeatable)")
	cmd.Flags().StringArrayVar(&opts.tags, "tag", nil, "Tag name (repeatable)")
	cmd.Flags().IntVarP(&opts.pages, "pages", "p", 1, "Maximum number of pages to load")
	return cmd
}

// loadPages drives a pagination controller the way a reader scrolling the
// listing would: one reload, then load-more until exhausted or pages is hit.
func loadPages(ctx context.Context, fetch pagination.Fetcher, opts articlesOptions) ([]models.ArticleSummary, error) {
	ctrl := pagination.NewController(ctx, fetch)
	defer ctrl.Close()

	ctrl.SetFilters(opts.filters())
	ctrl.SetSort(models.ParseSortBy(opts.sort))
	ctrl.SetSearch(opts.search)
	ctrl.Reload()

	for page := 1; ; page++ {
		if err := ctrl.Wait(ctx); err != nil {
			return nil, err
		}
		state := ctrl.Snapshot()
		if state.Err != nil {
			return nil, state.Err
		}
		if !state.HasMore || page >= opts.pages {
			return state.Articles, nil
		}
		ctrl.LoadMore()
	}
}

func renderArticles(cmd *cobra.Command, articles []models.ArticleSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Title", "Author", "Section", "Views", "Likes", "Comments", "Created"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: titleWidth},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for _, a := range articles {
		t.AppendRow(table.Row{
			a.ID,
			a.Title,
			name(a.Author),
			name(a.Section),
			strconv.FormatInt(a.Views, 10),
			strconv.FormatInt(a.Likes, 10),
			strconv.FormatInt(a.Comments, 10),
			a.CreatedAt.Format("2006-01-02"),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d articles", len(articles))})
	t.Render()
}

func name(n *models.Named) string {
	if n == nil {
		return "-"
	}
	return n.Name
}

func importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Run one import pass over every configured feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if len(a.cfg.Feeds) == 0 {
				fmt.Fprintln(os.Stderr, "No feeds configured. Set IMPORT_FEED_<SECTION>=url[,url...]")
				return nil
			}

			results, err := a.importer.ImportAll(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Section", "Fetched", "Created", "Updated", "Failed", "Feed errors"})
			for _, r := range results {
				t.AppendRow(table.Row{r.Section, r.Fetched, r.Created, r.Updated, r.Failed, r.Errors})
			}
			t.Render()
			return nil
		},
	}
}
