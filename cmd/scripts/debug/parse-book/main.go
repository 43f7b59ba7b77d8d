package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shelfwatch/shelfwatch/pkg/parsers"
)

func main() {
	log := logger.New()
	ctx := log.WithContext(context.Background())

	var opts struct {
		CoverOutput string `short:"o" long:"cover-output" description:"A path to output the cover image"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-book <path/to/book>")
		fmt.Println("supported:", parsers.Default().Supported())
		os.Exit(1)
	}

	metadata, err := parsers.Default().Parse(ctx, args[0])
	if err != nil {
		log.Err(err).Fatal("parse error")
	}

	cover := metadata.CoverData
	metadata.CoverData = nil
	out, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		log.Err(err).Fatal("marshal error")
	}
	fmt.Println(string(out))
	fmt.Printf("Has Cover Data: %v\nCover Mime Type: %s\n", len(cover) > 0, metadata.CoverMimeType)

	if opts.CoverOutput != "" && cover != nil {
		err = os.WriteFile(opts.CoverOutput, cover, 0644)
		if err != nil {
			log.Err(err).Fatal("file write error")
		}
	}
}
