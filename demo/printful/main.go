package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/ynnoj/gatsby-source-printful/pkg/asset"
	"github.com/ynnoj/gatsby-source-printful/pkg/config"
	"github.com/ynnoj/gatsby-source-printful/pkg/logger"
	"github.com/ynnoj/gatsby-source-printful/pkg/node"
	"github.com/ynnoj/gatsby-source-printful/pkg/node/postgres"
	"github.com/ynnoj/gatsby-source-printful/pkg/printful"
	"github.com/ynnoj/gatsby-source-printful/pkg/source"
	"github.com/ynnoj/gatsby-source-printful/pkg/transport/rest"
)

// store is what the demo needs from a sink beyond node.Sink
type store interface {
	node.Sink
	BeginRun()
	Stats() node.Stats
}

func main() {
	configPath := flag.String("config", "demo/printful/printful.yaml", "path to the YAML config")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println(".env file not loaded:", err)
	}

	cfg, err := config.DefaultLoader().Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := logger.NewLogger(os.Stderr, cfg.Name+":").Quiet()

	sink, prune, err := openStore(ctx, cfg.Destination)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	if c, ok := sink.(io.Closer); ok {
		defer c.Close()
	}

	client, err := printful.NewClient(cfg.Source)
	if err != nil {
		log.Fatal("Failed to create client:", err)
	}

	var fetcher asset.Fetcher = asset.NopFetcher{}
	if cfg.Assets.DownloadsEnabled() {
		fetcher, err = asset.NewDiskFetcher(cfg.Assets.Dir, rest.NewAssetClient(cfg.Source), sink)
		if err != nil {
			log.Fatal(err)
		}
	}

	syncer := source.NewSyncer(client, sink,
		source.WithFetcher(fetcher),
		source.WithLogger(l),
		source.WithPageSize(cfg.Source.PageSize),
		source.WithConcurrency(cfg.Source.Concurrency),
	)

	report, err := syncer.Run(ctx)
	if err != nil {
		log.Fatal(err)
	}

	stale, err := prune(ctx)
	if err != nil {
		log.Fatal("Failed to prune stale nodes:", err)
	}

	for typ, n := range report.Counts {
		l.Log("%-24s %d", typ, n)
	}
	l.Log("created %d, updated %d, unchanged %d, removed %d",
		report.Stats.Created, report.Stats.Updated, report.Stats.Unchanged, len(stale))

	if cfg.Output != "" {
		if err := writeGraph(ctx, cfg.Output, sink); err != nil {
			log.Fatal("Failed to write output:", err)
		}
		fmt.Printf("Synced %d nodes → %s\n", report.Total(), cfg.Output)
		return
	}
	fmt.Printf("Synced %d nodes with %d diagnostics\n", report.Total(), len(report.Diagnostics))
}

// openStore returns the configured sink and a func that removes nodes the
// run did not write
func openStore(ctx context.Context, dest config.Destination) (store, func(context.Context) ([]string, error), error) {
	switch dest.Type {
	case config.DestinationPostgres:
		s, err := postgres.Open(ctx, dest.DSN, dest.Table)
		if err != nil {
			return nil, nil, err
		}
		return s, s.EndRun, nil
	default:
		s := node.NewMemoryStore()
		return s, func(context.Context) ([]string, error) { return s.EndRun(), nil }, nil
	}
}

func writeGraph(ctx context.Context, path string, sink store) error {
	var nodes []*node.Node
	switch s := sink.(type) {
	case *node.MemoryStore:
		nodes = s.Nodes()
	case *postgres.Store:
		all, err := s.Nodes(ctx)
		if err != nil {
			return err
		}
		nodes = all
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(nodes)
}
