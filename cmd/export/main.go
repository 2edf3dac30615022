// Command export writes the order workbook straight from the configured
// store backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/access"
	"github.com/example/sales-desk/internal/config"
	"github.com/example/sales-desk/internal/domain"
	"github.com/example/sales-desk/internal/infrastructure/store"
	"github.com/example/sales-desk/internal/report"
)

func main() {
	out := flag.String("out", "sales-export.xlsx", "output file")
	status := flag.String("status", access.StatusAll, "status filter: pending, received or all")
	search := flag.String("q", "", "search invoice number, customer name or phone")
	userID := flag.String("user", "", "export only what this user may see (default: everything)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	if err := checkBackend(cfg); err != nil {
		log.Fatal(err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	st, err := cfg.OpenStore(ctx, nil, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	crit := access.Criteria{Status: *status, Search: *search}
	if err := crit.Validate(); err != nil {
		logger.Fatal("Invalid filter", zap.Error(err))
	}
	actor, err := resolveActor(ctx, st, *userID)
	if err != nil {
		logger.Fatal("Unknown user", zap.String("user", *userID), zap.Error(err))
	}

	f, err := os.Create(*out)
	if err != nil {
		logger.Fatal("Failed to create output", zap.Error(err))
	}
	written, err := export(ctx, st, actor, crit, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}
	if !written {
		_ = os.Remove(*out)
		fmt.Println(report.EmptyMessage)
		return
	}
	logger.Info("Export written", zap.String("file", *out))
}

// checkBackend rejects the memory backend: a fresh process would always
// export an empty store.
func checkBackend(cfg *config.Config) error {
	if cfg.StoreBackend == config.BackendMemory {
		return fmt.Errorf("export needs a persistent store: set STORE_BACKEND to %s or %s", config.BackendPostgres, config.BackendDynamoDB)
	}
	return nil
}

// resolveActor loads the user whose visibility applies. An empty id exports
// with admin visibility.
func resolveActor(ctx context.Context, st store.Store, id string) (domain.User, error) {
	if id == "" {
		return domain.User{ID: "export", Name: "export", Role: domain.RoleAdmin}, nil
	}
	u, err := st.Users().Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return u.Public(), nil
}

// export writes the workbook to w and reports whether there was anything to
// write.
func export(ctx context.Context, st store.Store, actor domain.User, crit access.Criteria, w io.Writer) (bool, error) {
	orders, err := st.Orders().List(ctx)
	if err != nil {
		return false, err
	}
	products, err := st.Products().List(ctx)
	if err != nil {
		return false, err
	}
	users, err := st.Users().List(ctx)
	if err != nil {
		return false, err
	}

	r, ok := report.Project(access.Filter(actor, orders, crit), products, users)
	if !ok {
		return false, nil
	}
	return true, report.WriteXLSX(w, r)
}
