package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"MiniTienda/internal/auth"
	"MiniTienda/internal/config"
	"MiniTienda/internal/inventory"
	"MiniTienda/internal/tienda"
	"MiniTienda/pkg/kit"
)

const service = "tienda"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "tienda",
		Short:        "Inventory and sales record keeper",
		SilenceUsage: true,
	}
	cobra.CheckErr(config.BindFlags(root.PersistentFlags(), v))

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serveCmd, newExportCmd(v))
	root.RunE = serveCmd.RunE
	return root
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	inv, err := inventory.Open(ctx, repo, inventory.Options{
		Log:        log.Named("inventory"),
		Metrics:    inventory.NewMetrics(reg),
		Location:   loc,
		StrictLoad: cfg.StrictLoad,
	})
	if err != nil {
		return err
	}

	users, err := auth.ParseUsers(cfg.Users)
	if err != nil {
		return err
	}
	verifier, err := auth.NewStaticVerifier(users, 0)
	if err != nil {
		return err
	}

	var tokens *auth.TokenMaker
	if cfg.JWTSecret != "" {
		tokens = auth.NewTokenMaker(cfg.JWTSecret, cfg.TokenTTL)
	}

	proxies, err := kit.ParsePrefixes(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	s := &tienda.Server{
		Inventory: inv,
		Verifier:  verifier,
		Tokens:    tokens,
		Log:       log,
	}
	h := tienda.NewHandler(s, tienda.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsToken != "",
		MetricsToken:   cfg.MetricsToken,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: proxies,
	})

	log.Info("access gate ready",
		zap.Strings("users", verifier.Usernames()),
		zap.Bool("bearer_tokens", tokens != nil),
		zap.String("store", cfg.Store),
	)

	if err := kit.RunHTTPServer(ctx, cfg.Addr, h, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
		return err
	}
	return nil
}

func openRepository(ctx context.Context, cfg config.Config) (inventory.Repository, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := inventory.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case config.StoreMemory:
		return inventory.NewMemStore(), func() {}, nil
	default:
		return inventory.NewFileStore(cfg.ProductsFile, cfg.SalesFile), func() {}, nil
	}
}
