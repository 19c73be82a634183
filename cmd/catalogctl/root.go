package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"boatcatalog/internal/backend"
	"boatcatalog/internal/database"
	domain "boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/media"
	"boatcatalog/internal/snapshot"
)

// env is what every subcommand needs, built after flags are parsed.
type env struct {
	v   *viper.Viper
	out io.Writer

	client      *backend.Client
	resolver    *media.Resolver
	transformer *domain.Transformer
	snapshots   *snapshot.Service
}

func newRootCommand(out io.Writer) *cobra.Command {
	e := &env{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Boat catalog maintenance tool",
		Long:          "Export, import, restore and check the boat catalog held by the REST backend.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String("backend-url", "", "Catalog backend base URL (env CATALOG_BACKEND_URL or BACKEND_URL)")
	flags.String("email", "", "Backend login email (env CATALOG_EMAIL or BACKEND_EMAIL)")
	flags.String("password", "", "Backend login password (env CATALOG_PASSWORD or BACKEND_PASSWORD)")
	flags.Duration("timeout", 15*time.Second, "Backend request timeout")
	flags.String("db", "catalog_snapshots.db", "Snapshot history database (SQLite path or postgres:// URL)")
	flags.String("tables", "", "YAML file overriding folder, display-name and fallback tables")
	flags.String("image-base", media.DefaultBasePrefix, "Base prefix for locally served images")

	e.v.SetEnvPrefix("CATALOG")
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()
	// Share the API's variable names so one .env serves both.
	_ = e.v.BindEnv("backend-url", "CATALOG_BACKEND_URL", "BACKEND_URL")
	_ = e.v.BindEnv("email", "CATALOG_EMAIL", "BACKEND_EMAIL")
	_ = e.v.BindEnv("password", "CATALOG_PASSWORD", "BACKEND_PASSWORD")
	_ = e.v.BindEnv("db", "CATALOG_DB", "SNAPSHOT_DSN")
	_ = e.v.BindEnv("tables", "CATALOG_TABLES", "CATALOG_TABLES_FILE")
	_ = e.v.BindEnv("image-base", "CATALOG_IMAGE_BASE", "IMAGE_BASE_PREFIX")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := e.v.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
		return e.init()
	}

	root.AddCommand(
		exportCommand(e),
		importCommand(e),
		restoreCommand(e),
		checkCommand(e),
		historyCommand(e),
		pruneCommand(e),
	)
	return root
}

func (e *env) init() error {
	baseURL := strings.TrimRight(strings.TrimSpace(e.v.GetString("backend-url")), "/")
	if baseURL == "" {
		return fmt.Errorf("backend url is required (--backend-url or CATALOG_BACKEND_URL)")
	}

	tables, err := media.LoadTables(e.v.GetString("tables"))
	if err != nil {
		return err
	}
	e.resolver = media.NewResolver(e.v.GetString("image-base"), tables)
	e.transformer = domain.NewTransformer(e.resolver)

	e.client = backend.New(backend.Config{
		BaseURL:  baseURL,
		Email:    e.v.GetString("email"),
		Password: e.v.GetString("password"),
		Timeout:  e.v.GetDuration("timeout"),
		CacheTTL: -1,
	})

	var repo snapshot.Repository
	if dsn := strings.TrimSpace(e.v.GetString("db")); dsn != "" {
		db, err := database.Connect(dsn)
		if err != nil {
			return fmt.Errorf("open snapshot db: %w", err)
		}
		if err := database.Migrate(db, &snapshot.Snapshot{}); err != nil {
			return fmt.Errorf("migrate snapshot db: %w", err)
		}
		repo = snapshot.NewRepository(db)
	}
	e.snapshots = snapshot.NewService(e.client, e.transformer, repo)
	return nil
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}
