package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/app"
	"github.com/osintscope/eventsearch/internal/discover"
	"github.com/osintscope/eventsearch/internal/export"
	"github.com/osintscope/eventsearch/internal/model"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		cfgPath      string
		envFile      string
		sources      string
		queryText    string
		location     string
		eventType    string
		dateFrom     string
		dateTo       string
		maxResults   int
		maxArticles  int
		minRelevance float64
		format       string
		csvPath      string
		pdfPath      string
		timeout      time.Duration
		verbose      bool
	)

	flag.StringVar(&cfgPath, "config", os.Getenv("EVENTSEARCH_CONFIG"), "Path to YAML or JSON config file (lowest layer)")
	flag.StringVar(&envFile, "env-file", "", "Additional dotenv file loaded after .env")
	flag.StringVar(&sources, "sources", "", "Path to the source registry YAML")
	flag.StringVar(&queryText, "query", "", "Natural-language search query (or pass it as arguments)")
	flag.StringVar(&location, "location", "", "Location filter, e.g. 'Kharkiv' or 'Ukraine'")
	flag.StringVar(&eventType, "type", "", "Event type filter, e.g. protest or military_operation")
	flag.StringVar(&dateFrom, "from", "", "Earliest event date, YYYY-MM-DD")
	flag.StringVar(&dateTo, "to", "", "Latest event date, YYYY-MM-DD")
	flag.IntVar(&maxResults, "max.results", 0, "Maximum search results per source (0 uses configured limits)")
	flag.IntVar(&maxArticles, "max.articles", 0, "Maximum articles to process per source (0 uses configured limits)")
	flag.Float64Var(&minRelevance, "min.relevance", 0, "Minimum relevance score in [0,1] (0 uses the configured threshold)")
	flag.StringVar(&format, "format", "table", "Output format: table or json")
	flag.StringVar(&csvPath, "export.csv", "", "Write extracted events as CSV to this path")
	flag.StringVar(&pdfPath, "export.pdf", "", "Write a PDF report to this path")
	flag.DurationVar(&timeout, "timeout", 0, "Overall deadline for the search (e.g. 5m); 0 disables")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if strings.TrimSpace(queryText) == "" {
		queryText = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(queryText) == "" {
		fmt.Fprintln(os.Stderr, "usage: eventsearch [flags] <query>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := app.LoadEnvFiles(".env", envFile); err != nil {
		log.Error().Err(err).Msg("load env files")
		os.Exit(1)
	}

	cfg := app.Config{
		SourcesPath:  sources,
		MinRelevance: minRelevance,
		Verbose:      verbose,
	}
	app.ApplyEnvToConfig(&cfg)
	if cfgPath != "" {
		fc, err := app.LoadConfigFile(cfgPath)
		if err != nil {
			log.Error().Err(err).Str("path", cfgPath).Msg("load config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	query, err := buildQuery(queryText, location, eventType, dateFrom, dateTo)
	if err != nil {
		log.Error().Err(err).Msg("invalid query")
		os.Exit(2)
	}
	limits := discover.Limits{MaxSearchResults: maxResults, MaxArticles: maxArticles}

	resp, err := run(cfg, query, limits, timeout)
	if err != nil {
		log.Error().Err(err).Msg("search failed")
		os.Exit(1)
	}

	if err := render(resp, format, csvPath, pdfPath); err != nil {
		log.Error().Err(err).Msg("write output")
		os.Exit(1)
	}

	// Exit code policy: 2 when the pipeline ran but found nothing, so
	// scripts can distinguish an empty result from a hard failure.
	if resp.TotalEvents == 0 {
		os.Exit(2)
	}
}

func buildQuery(text, location, eventType, from, to string) (model.SearchQuery, error) {
	q := model.SearchQuery{
		QueryText: strings.TrimSpace(text),
		Location:  strings.TrimSpace(location),
	}
	if s := strings.TrimSpace(eventType); s != "" {
		t := model.EventType(strings.ToLower(s))
		if !t.Valid() {
			return q, fmt.Errorf("unknown event type %q", eventType)
		}
		q.EventType = t
	}
	if s := strings.TrimSpace(from); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return q, fmt.Errorf("from: expected YYYY-MM-DD, got %q", from)
		}
		q.DateFrom = &d
	}
	if s := strings.TrimSpace(to); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return q, fmt.Errorf("to: expected YYYY-MM-DD, got %q", to)
		}
		q.DateTo = &d
	}
	return q, nil
}

func run(cfg app.Config, query model.SearchQuery, limits discover.Limits, timeout time.Duration) (*model.SearchResponse, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Search(ctx, query, limits), nil
}

func render(resp *model.SearchResponse, format, csvPath, pdfPath string) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		fmt.Println(string(b))
	case "table", "":
		printTable(resp)
	default:
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}

	if csvPath != "" && resp.TotalEvents > 0 {
		if err := writeCSVFile(csvPath, resp.Events); err != nil {
			return err
		}
		log.Info().Str("path", csvPath).Msg("csv written")
	}
	if pdfPath != "" && resp.TotalEvents > 0 {
		if err := writePDFFile(pdfPath, resp); err != nil {
			return err
		}
		log.Info().Str("path", pdfPath).Msg("pdf written")
	}
	return nil
}

func printTable(resp *model.SearchResponse) {
	fmt.Printf("%s (%d event(s), %d article(s) from %d source(s) in %.1fs)\n\n",
		resp.Message, resp.TotalEvents, resp.ArticlesScraped, resp.SourcesScraped, resp.ProcessingTime)
	if resp.TotalEvents == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTYPE\tDATE\tLOCATION\tCONF\tTITLE")
	for i, ev := range resp.Events {
		loc := ""
		if ev.Location != nil {
			parts := make([]string, 0, 2)
			if ev.Location.City != "" {
				parts = append(parts, ev.Location.City)
			}
			if ev.Location.Country != "" {
				parts = append(parts, ev.Location.Country)
			}
			loc = strings.Join(parts, ", ")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\n",
			i+1, ev.EventType, ev.EventDate, loc, ev.Confidence, ev.Title)
	}
	w.Flush()
}

func writeCSVFile(path string, events []model.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()
	if err := export.WriteCSV(f, events); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writePDFFile(path string, resp *model.SearchResponse) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	defer f.Close()
	rep := export.Report{Query: resp.Query, Events: resp.Events, GeneratedAt: time.Now()}
	if err := export.WritePDF(f, rep); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
