// Command catalogimport loads products from an .xlsx catalog into the
// configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"lafavorita/backend/internal/app"
	"lafavorita/backend/internal/config"
	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/excel"
	"lafavorita/backend/internal/logger"
	"lafavorita/backend/internal/service"
)

type options struct {
	path     string
	operator string
	dryRun   bool
}

func main() {
	opts := options{}
	flag.StringVar(&opts.path, "file", "", "path to the .xlsx catalog")
	flag.StringVar(&opts.operator, "as", "admin", "administrator recorded as the importing user")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "parse and report without writing")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})

	if opts.path == "" {
		fmt.Fprintln(os.Stderr, "usage: catalogimport -file catalog.xlsx [-as admin] [-dry-run]")
		os.Exit(2)
	}

	f, err := os.Open(opts.path)
	if err != nil {
		log.Fatal().Err(err).Msg("open catalog")
	}
	defer f.Close()

	if opts.dryRun {
		rows, err := excel.ParseCatalog(f)
		if err != nil {
			log.Fatal().Err(err).Msg("parse catalog")
		}
		valid := 0
		for _, row := range rows {
			if row.Err != nil {
				fmt.Printf("row %d: %v\n", row.Line, row.Err)
				continue
			}
			valid++
		}
		fmt.Printf("%d rows ready to import, %d with errors\n", valid, len(rows)-valid)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	b, err := app.OpenBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("storage unavailable")
	}
	defer b.Close(log)

	user, err := b.Repo.GetUser(ctx, opts.operator)
	if err != nil {
		log.Fatal().Err(err).Str("user", opts.operator).Msg("unknown operator")
	}
	actor := domain.Actor{Username: user.Username, Role: user.Role, Name: user.Name}

	svc := service.New(b.Repo, b.Carts, log).WithLocation(cfg.Location())
	result, err := svc.ImportCatalog(service.WithActor(ctx, actor), f)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}

	for _, msg := range result.Errors {
		fmt.Println(msg)
	}
	fmt.Printf("imported %d products, skipped %d\n", result.Created, result.Skipped)
}
