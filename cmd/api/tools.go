package main

import (
	"fmt"
	"os"
	"path/filepath"

	"donodopedaco/internal/catalog"
	"donodopedaco/internal/config"
	"donodopedaco/internal/storage"
	"donodopedaco/internal/whatsapp"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var linkCmd = &cobra.Command{
	Use:   "link [text]",
	Short: "Print a click-to-chat link to the shop",
	Long:  "Prints the WhatsApp link for text, or for the store's default greeting when no text is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := config.LoadEnv()
		if err != nil {
			return err
		}
		store, err := loadStore(env)
		if err != nil {
			return err
		}

		text := store.WhatsApp.DefaultMessage
		if len(args) == 1 {
			text = whatsapp.Sanitize(args[0])
		}
		link, err := whatsapp.Link(store.WhatsApp.Host, store.WhatsApp.Number, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog <file>",
	Short: "Validate a catalog file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := readCatalog(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d categories, %d products\n",
			args[0], len(c.Categories), c.Count())
		return nil
	},
}

var catalogPushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Validate a catalog file and upload it to the R2 bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if _, err := readCatalog(args[0]); err != nil {
			return err
		}

		env, err := config.LoadEnv()
		if err != nil {
			return err
		}
		client, err := storage.NewR2Client(cmd.Context(), env.R2)
		if err != nil {
			return err
		}

		contentType := "application/yaml"
		if filepath.Ext(args[0]) == ".json" {
			contentType = "application/json"
		}
		if err := client.Upload(cmd.Context(), env.R2.CatalogKey, data, contentType); err != nil {
			return err
		}

		logger.Info("catalog uploaded",
			zap.String("bucket", env.R2.Bucket),
			zap.String("key", env.R2.CatalogKey),
		)
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogPushCmd)
}

func readCatalog(path string) (*catalog.Catalog, error) {
	if err := catalog.ValidateFileExtension(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return catalog.Parse(data)
}
