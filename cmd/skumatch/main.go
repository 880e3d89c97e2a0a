package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"skumatch/internal/catalog"
	"skumatch/internal/config"
	"skumatch/internal/embed"
	"skumatch/internal/match"
	"skumatch/internal/pipeline"
	"skumatch/internal/storage"
)

const catalogMtimeKey = "catalog.snapshotMtime"

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	must(err)
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:load":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		path := fs.String("path", cfg.CatalogPath, "catalog snapshot json")
		_ = fs.Parse(os.Args[2:])

		products, mtime, err := catalog.LoadSnapshot(*path)
		must(err)
		must(db.UpsertProducts(products))
		must(db.SetMetadata(catalogMtimeKey, strconv.FormatInt(mtime.Unix(), 10)))
		fmt.Printf("catalog loaded: %d products from %s\n", len(products), *path)

	case "match:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		reference := fs.String("reference", "", "order reference")
		itemsPath := fs.String("items", "", "extracted line items json")
		output := fs.String("output", "", "optional xlsx output path")
		codeMap := fs.String("code-map", "", "optional customer code mapping json")
		noSemantic := fs.Bool("no-semantic", false, "skip the embedding stage")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*reference) == "" || strings.TrimSpace(*itemsPath) == "" {
			must(fmt.Errorf("--reference and --items are required"))
		}

		items, err := pipeline.LoadLineItems(*itemsPath)
		must(err)

		ctx := context.Background()
		matcher, err := buildMatcher(ctx, cfg, db, !*noSemantic, log)
		must(err)
		if strings.TrimSpace(*codeMap) != "" {
			translator, err := catalog.LoadCodeMap(*codeMap)
			must(err)
			matcher.SetCodeTranslator(translator)
			log.Infow("code map loaded", "path", *codeMap, "entries", translator.Len())
		}

		svc := pipeline.NewProcessingService(db, matcher, log)
		res, err := svc.ProcessOrder(ctx, *reference, items)
		must(err)
		fmt.Printf("order processed reference=%s lines=%d matched=%d review=%d\n", *reference, res.Processed, res.Matched, res.Review)

		if strings.TrimSpace(*output) != "" {
			rows, err := db.GetExportRows(res.OrderID)
			must(err)
			must(pipeline.ExportRowsToXLSX(rows, *output))
			fmt.Printf("exported %d rows to %s\n", len(rows), *output)
		}

	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		reference := fs.String("reference", "", "order reference")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*reference) == "" {
			must(fmt.Errorf("--reference is required"))
		}
		if strings.TrimSpace(*out) == "" {
			*out = filepath.Join(cfg.OutputDir, *reference+".xlsx")
		}

		order, err := db.MustOrderByReference(*reference)
		must(err)
		rows, err := db.GetExportRows(order.ID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no export rows for reference=%s", *reference))
		}
		must(pipeline.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)

	default:
		usage()
		os.Exit(1)
	}
}

// buildMatcher assembles the cascade over the stored catalog. The semantic
// stage is best-effort: an unreachable embedding endpoint degrades to
// token-only search instead of failing the run.
func buildMatcher(ctx context.Context, cfg config.Config, db *storage.DB, semantic bool, log *zap.SugaredLogger) (*match.SmartMatcher, error) {
	products, err := db.ListProducts()
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("catalog is empty, run catalog:load first")
	}

	idx := catalog.BuildIndex(products)
	token := match.NewTokenMatcher(idx)

	var semanticMatcher *match.SemanticMatcher
	if semantic {
		client := embed.NewClient(cfg.EmbedAPIBaseURL, cfg.EmbedModel, time.Duration(cfg.EmbedTimeoutMs)*time.Millisecond)
		client.SetMaxRequestsPerSecond(cfg.EmbedMaxRPS)
		if err := client.Ping(ctx); err != nil {
			log.Warnw("embedding endpoint unavailable", "baseUrl", cfg.EmbedAPIBaseURL, "err", err)
		} else {
			cachePath := filepath.Join(cfg.CacheDir, "embeddings.gob")
			embIdx, err := match.BuildEmbeddingIndex(ctx, client, products, cachePath, catalogMtime(db), log)
			if err != nil {
				log.Warnw("embedding index not built", "err", err)
			} else {
				semanticMatcher = match.NewSemanticMatcher(embIdx, client)
			}
		}
	}

	hybrid := match.NewHybridMatcher(token, semanticMatcher, log)
	return match.NewSmartMatcher(cfg, idx, token, hybrid, log), nil
}

func catalogMtime(db *storage.DB) time.Time {
	value, err := db.GetMetadata(catalogMtimeKey)
	if err != nil || value == nil {
		return time.Time{}
	}
	unix, err := strconv.ParseInt(*value, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

func usage() {
	fmt.Println("usage: skumatch <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:load [--path=./data/catalog.json]")
	fmt.Println("  match:run --reference=ORDER-1 --items=./items.json [--output=./out/order.xlsx] [--code-map=./codes.json] [--no-semantic]")
	fmt.Println("  export:xlsx --reference=ORDER-1 [--out=./out/order.xlsx]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
