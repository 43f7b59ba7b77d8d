package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shelfwatch/shelfwatch/pkg/config"
	"github.com/shelfwatch/shelfwatch/pkg/matching"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers/sources"
)

// Runs one search against a live source and prints the ranked candidates.
func main() {
	log := logger.New()
	ctx := log.WithContext(context.Background())

	var opts struct {
		Source string   `short:"s" long:"source" default:"openlibrary" description:"amazon, kindle or openlibrary"`
		Title  string   `short:"t" long:"title" description:"Title to search for"`
		Author []string `short:"a" long:"author" description:"Author name, may be repeated"`
		Series string   `long:"series" description:"Series name"`
		ISBN   string   `long:"isbn" description:"Look up a single ISBN instead of searching"`
		Limit  int      `short:"n" long:"limit" default:"10" description:"Maximum results"`
	}

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		cfg = config.NewForTest()
	}

	scraper, err := sources.NewRegistry(cfg, nil).ForSource(models.LocationType(opts.Source))
	if err != nil {
		log.Err(err).Fatal("source error")
	}

	if opts.ISBN != "" {
		candidate, err := scraper.Lookup(ctx, opts.ISBN)
		if err != nil {
			log.Err(err).Fatal("lookup error")
		}
		printJSON(log, candidate)
		return
	}

	q := scrapers.Query{Title: opts.Title, Authors: opts.Author, Series: opts.Series, Limit: opts.Limit}
	candidates, err := scraper.Search(ctx, q)
	if err != nil {
		log.Err(err).Fatal("search error")
	}
	printJSON(log, matching.Rank(q, candidates))
}

func printJSON(log logger.Logger, v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Err(err).Fatal("marshal error")
	}
	fmt.Println(string(out))
}
