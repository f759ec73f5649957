// Command backfill republishes an already-normalized corpus to the reindex
// subject, rebuilding the vector index without re-running normalization.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"

	"github.com/vivekavani/gita-engine/engine/corpus"
	"github.com/vivekavani/gita-engine/engine/ingest"
	"github.com/vivekavani/gita-engine/pkg/fn"
	"github.com/vivekavani/gita-engine/pkg/natsutil"
)

func main() {
	var (
		corpusDir = flag.String("corpus", "output/chapters_final", "normalized corpus directory")
		natsURL   = flag.String("nats", nats.DefaultURL, "NATS server URL")
		chapter   = flag.Int("chapter", 0, "republish only this chapter (0 = all)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	nc, err := nats.Connect(*natsURL)
	if err != nil {
		log.Fatalf("nats connect: %v", err)
	}
	defer nc.Drain()

	files, err := corpus.ListChapterFiles(*corpusDir)
	if err != nil {
		log.Fatalf("list corpus: %v", err)
	}
	if *chapter > 0 {
		files = fn.Filter(files, func(f corpus.ChapterFile) bool {
			return f.ChapterNumber == *chapter
		})
	}

	var published int
	for _, f := range files {
		verses, err := corpus.ReadChapter(f.Path)
		if err != nil {
			log.Fatalf("read chapter %d: %v", f.ChapterNumber, err)
		}
		for _, v := range verses {
			if ctx.Err() != nil {
				log.Fatalf("interrupted after %d verses", published)
			}
			if err := natsutil.Publish(ctx, nc, ingest.ReindexSubject, v); err != nil {
				log.Fatalf("publish %s: %v", v.ID(), err)
			}
			published++
		}
		log.Printf("chapter %d queued (%d verses)", f.ChapterNumber, len(verses))
	}

	if err := nc.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}
	log.Printf("published %d verses to %s", published, ingest.ReindexSubject)
}
