// Command controlplane starts the cell-based placement control plane's HTTP
// server: it loads static configuration (cells, tiers, products), wires the
// in-process stores, and serves the API described in spec.md 6.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/GoCodeAlone/cellplacement/analytics"
	"github.com/GoCodeAlone/cellplacement/api"
	"github.com/GoCodeAlone/cellplacement/breaker"
	"github.com/GoCodeAlone/cellplacement/catalog"
	"github.com/GoCodeAlone/cellplacement/claimstore"
	"github.com/GoCodeAlone/cellplacement/config"
	"github.com/GoCodeAlone/cellplacement/experiment"
	"github.com/GoCodeAlone/cellplacement/flags"
	"github.com/GoCodeAlone/cellplacement/policy"
	"github.com/GoCodeAlone/cellplacement/product"
)

func main() {
	cellsPath := flag.String("cells", "configs/cells.yaml", "path to the cell catalog YAML file")
	tiersPath := flag.String("tiers", "configs/tiers.yaml", "path to the tier table YAML file")
	productsPath := flag.String("products", "configs/products.yaml", "path to the product registry YAML file")
	storeMode := flag.String("store", "sqlite", "claim store backend: sqlite (standalone) or kube (cluster mode, via client-go dynamic client)")
	sqlitePath := flag.String("sqlite-path", "controlplane.db", "standalone-mode SQLite claim store path")
	kubeconfig := flag.String("kubeconfig", "", "path to a kubeconfig file for -store=kube; empty uses in-cluster config")
	pgURL := flag.String("analytics-pg-url", "", "optional Postgres URL for durable analytics snapshots; disabled if empty")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*cellsPath, *tiersPath, *productsPath, *storeMode, *sqlitePath, *kubeconfig, *pgURL, logger); err != nil {
		logger.Error("control plane exited with error", "error", err)
		os.Exit(1)
	}
}

// openStore constructs the Store backend named by storeMode. "kube" builds a
// client-go dynamic client (in-cluster config, or kubeconfig if given) and a
// {product name -> GroupVersionResource} map derived from the registered
// products' {apiVersion, kind},
// assuming the CRD convention pluralResource == lower(kind) + "s".
func openStore(storeMode, sqlitePath, kubeconfig string, productDefs []product.Definition) (claimstore.Store, func() error, error) {
	switch storeMode {
	case "sqlite":
		store, err := claimstore.NewSQLiteStore(sqlitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite claim store: %w", err)
		}
		return store, store.Close, nil
	case "kube":
		var restCfg *rest.Config
		var err error
		if kubeconfig != "" {
			restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		} else {
			restCfg, err = rest.InClusterConfig()
		}
		if err != nil {
			return nil, nil, fmt.Errorf("build kube rest config: %w", err)
		}

		client, err := dynamic.NewForConfig(restCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("build kube dynamic client: %w", err)
		}

		gvrForKind := make(map[string]schema.GroupVersionResource, len(productDefs))
		for _, def := range productDefs {
			gv, err := schema.ParseGroupVersion(def.APIVersion)
			if err != nil {
				return nil, nil, fmt.Errorf("parse apiVersion %q for product %q: %w", def.APIVersion, def.Name, err)
			}
			gvrForKind[def.Name] = gv.WithResource(strings.ToLower(def.Kind) + "s")
		}

		return claimstore.NewKubeStore(client, gvrForKind), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown -store value %q (want sqlite or kube)", storeMode)
	}
}

func run(cellsPath, tiersPath, productsPath, storeMode, sqlitePath, kubeconfig, pgURL string, logger *slog.Logger) error {
	ctx := context.Background()

	cells, err := config.LoadCells(ctx, config.NewFileSource(cellsPath))
	if err != nil {
		return fmt.Errorf("load cells: %w", err)
	}
	tierSpecs, err := config.LoadTiers(ctx, config.NewFileSource(tiersPath))
	if err != nil {
		return fmt.Errorf("load tiers: %w", err)
	}
	productDefs, err := config.LoadProducts(ctx, config.NewFileSource(productsPath))
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	products := product.NewRegistry()
	for _, def := range productDefs {
		if err := products.Register(def); err != nil {
			return fmt.Errorf("register product: %w", err)
		}
	}

	store, closeStore, err := openStore(storeMode, sqlitePath, kubeconfig, productDefs)
	if err != nil {
		return fmt.Errorf("open claim store: %w", err)
	}
	defer closeStore()

	recorder := analytics.NewRecorder()

	if pgURL != "" {
		pgStore, err := analytics.NewPGStore(ctx, analytics.PGConfig{URL: pgURL})
		if err != nil {
			return fmt.Errorf("connect analytics durability store: %w", err)
		}
		defer pgStore.Close()

		durability := analytics.NewDurabilityJob(recorder, pgStore, time.Minute, logger)
		if err := durability.Start(ctx); err != nil {
			return fmt.Errorf("start analytics durability job: %w", err)
		}
		defer durability.Stop()
	}

	srv := &api.Server{
		Catalog:     catalog.New(cells),
		Tiers:       policy.NewTable(tierSpecs),
		Breakers:    breaker.NewRegistry(),
		Experiments: experiment.NewStore(),
		Flags:       flags.NewStore(),
		Products:    products,
		Store:       store,
		Recorder:    recorder,
		Deadlines:   claimstore.DefaultDeadlines(),
		Log:         logger,
	}

	host := config.Host()
	port, err := config.Port()
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("control plane listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
