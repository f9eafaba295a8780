package main

import (
	"fmt"
	"os"

	"donodopedaco/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose   bool
	storePath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "donodopedaco",
	Short: "Site and order desk of Panificadora Dono do Pedaço",
	Long: `Serves the bakery site: menu, cake and snack order forms, and the
confirmation step that hands each order to the shop's WhatsApp.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewDevelopmentConfig()
		if os.Getenv("APP_ENV") == "production" {
			cfg = zap.NewProductionConfig()
		}
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Store config YAML (default: STORE_CONFIG or built-in)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(catalogCmd)
}

// loadStore prefers the --store flag over STORE_CONFIG.
func loadStore(env config.Env) (config.Store, error) {
	path := storePath
	if path == "" {
		path = env.StoreConfigPath
	}
	return config.LoadStore(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
