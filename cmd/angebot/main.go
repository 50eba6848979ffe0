package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"angebot/internal"
	"angebot/internal/ai"
	"angebot/internal/config"
	"angebot/internal/pipeline"
	"angebot/internal/storage"
	"angebot/internal/textsource"
)

func main() {
	logger, err := zap.NewProduction()
	must(err)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx := context.Background()

	cmd := os.Args[1]
	switch cmd {
	case "process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "LV document (pdf or txt)")
		out := fs.String("out", "", "output path (.xlsx or .csv), default under OUTPUT_DIR")
		noAI := fs.Bool("no-ai", false, "disable the AI collaborator")
		save := fs.Bool("save", true, "record the run in the offer history")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		processor := pipeline.NewProcessor(cfg, db, makeCompleter(cfg, *noAI))
		state, err := processor.Run(ctx, *input, !*noAI)
		must(err)

		printRun(state)

		outputPath := *out
		if outputPath == "" {
			base := strings.TrimSuffix(filepath.Base(*input), filepath.Ext(*input))
			outputPath = filepath.Join(cfg.OutputDir, fmt.Sprintf("Angebot_%s_%s.xlsx", base, time.Now().Format("2006-01-02")))
		}
		if strings.EqualFold(filepath.Ext(outputPath), ".csv") {
			must(pipeline.ExportCSV(state, outputPath))
		} else {
			must(pipeline.ExportXLSX(state, outputPath))
		}
		fmt.Printf("exported %d positions to %s\n", len(state.Results), outputPath)

		if *save {
			must(processor.SaveHistory(state))
		}
	case "catalog:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "price list (xlsx, csv, pdf, txt, html)")
		noAI := fs.Bool("no-ai", false, "disable the AI collaborator")
		replace := fs.Bool("replace", false, "replace the catalog instead of appending")
		priceLines := fs.Bool("price-lines", false, "parse txt input as framework-agreement price lines")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		importer := pipeline.NewImporter(cfg, makeCompleter(cfg, *noAI))
		entries, log, err := importCatalog(ctx, importer, cfg, *input, !*noAI, *priceLines)
		must(err)
		printLog(log)
		if len(entries) == 0 {
			must(fmt.Errorf("no catalog rows recognized in %s", *input))
		}

		if *replace {
			must(db.ReplaceAll(entries))
		} else {
			must(db.AppendAll(entries))
		}
		fmt.Printf("imported %d catalog rows from %s\n", len(entries), *input)
	case "catalog:list":
		entries, err := db.LoadAll()
		must(err)
		for _, e := range entries {
			fmt.Printf("%5d  %-50s %6s  %8.2f", e.ID, truncate(e.Description, 50), e.Unit, e.PriceMin)
			if e.PriceMax > e.PriceMin {
				fmt.Printf(" - %8.2f", e.PriceMax)
			}
			fmt.Printf("  [%s]\n", e.Category)
		}
		fmt.Printf("%d entries\n", len(entries))
	case "catalog:clear":
		must(db.Clear())
		fmt.Println("catalog and learned mappings cleared")
	case "mapping:confirm":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "LV position text as extracted")
		priceID := fs.Int("price-id", 0, "catalog entry id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*text) == "" || *priceID <= 0 {
			must(fmt.Errorf("--text and --price-id are required"))
		}
		must(db.ConfirmMapping(*text, *priceID))
		fmt.Printf("confirmed mapping to catalog id %d\n", *priceID)
	case "history":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max offers to list")
		_ = fs.Parse(os.Args[2:])
		offers, err := db.ListOffers(*limit)
		must(err)
		for _, o := range offers {
			fmt.Printf("%5d  %-30s %-30s %4d pos  %10.2f €  %s\n",
				o.ID, truncate(o.FileName, 30), truncate(o.ProjectName, 30), o.ItemCount, o.TotalPrice, o.CreatedAt)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func makeCompleter(cfg config.Config, noAI bool) ai.Completer {
	if noAI {
		return nil
	}
	return ai.NewClient(cfg)
}

// importCatalog picks the import strategy by file extension.
func importCatalog(ctx context.Context, importer *pipeline.Importer, cfg config.Config, input string, useAI, priceLines bool) ([]internal.CatalogEntry, []internal.LogEntry, error) {
	switch strings.ToLower(filepath.Ext(input)) {
	case ".xlsx", ".csv":
		headers, rows, err := textsource.Table(input)
		if err != nil {
			return nil, nil, err
		}
		entries, log := importer.Tabular(ctx, headers, rows, useAI)
		return entries, log, nil
	case ".html", ".htm":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, nil, err
		}
		return importer.HTMLTable(string(blob)), nil, nil
	case ".txt":
		if priceLines {
			blob, err := os.ReadFile(input)
			if err != nil {
				return nil, nil, err
			}
			return importer.PriceLines(string(blob)), nil, nil
		}
		fallthrough
	case ".pdf":
		pages, err := textsource.Pages(input)
		if err != nil {
			return nil, nil, err
		}
		entries, log := importer.TextPages(ctx, pages, useAI)
		return entries, log, nil
	default:
		return nil, nil, fmt.Errorf("unsupported import type: %s", filepath.Ext(input))
	}
}

func printRun(state *internal.PipelineState) {
	if state.ProjectName != "" {
		fmt.Printf("Projekt: %s\n", state.ProjectName)
	}
	if state.Recipient != "" {
		fmt.Printf("Empfänger: %s\n", strings.ReplaceAll(state.Recipient, "\n", ", "))
	}
	printLog(state.Log)

	for _, r := range state.Results {
		fmt.Printf("%-12s %-40s %8.2f %-5s  %-40s %3d  %8.2f  %10.2f\n",
			r.Item.PositionCode, truncate(r.Item.Description, 40), r.Item.Quantity, r.Item.Unit,
			truncate(r.Match.MatchedDescription, 40), r.Match.MatchScore, r.Match.Price, r.Total())
	}
	fmt.Printf("Gesamtsumme: %.2f €\n", pipeline.TotalPrice(state.Results))
}

func printLog(log []internal.LogEntry) {
	for _, e := range log {
		fmt.Fprintf(os.Stderr, "%s: %s\n", e.Severity, e.Message)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func usage() {
	fmt.Println("usage: angebot <command>")
	fmt.Println("commands:")
	fmt.Println("  process --input=lv.pdf [--out=angebot.xlsx|.csv] [--no-ai] [--save=false]")
	fmt.Println("  catalog:import --input=preise.xlsx|.csv|.pdf|.txt|.html [--replace] [--no-ai] [--price-lines]")
	fmt.Println("  catalog:list")
	fmt.Println("  catalog:clear")
	fmt.Println("  mapping:confirm --text=\"...\" --price-id=1")
	fmt.Println("  history [--limit=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
