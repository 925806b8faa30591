package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cedricziel/readwhere/internal/storage"
)

var credsCatalogID string

func init() {
	credsCmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage stored plugin credentials",
	}
	credsCmd.PersistentFlags().StringVar(&credsCatalogID, "catalog", "", "catalog id the credential belongs to")

	setCmd := &cobra.Command{
		Use:   "set <plugin-id> <key>",
		Short: "Store a credential for a plugin interactively",
		Long:  `Prompt for a secret value and store it encrypted in the plugin's credential store.`,
		Args:  cobra.ExactArgs(2),
		RunE:  runCredsSet,
	}
	clearCmd := &cobra.Command{
		Use:   "clear <plugin-id>",
		Short: "Delete a plugin's stored credentials for a catalog",
		Args:  cobra.ExactArgs(1),
		RunE:  runCredsClear,
	}
	credsCmd.AddCommand(setCmd, clearCmd)

	rootCmd.AddCommand(credsCmd)
}

func openPluginStorage(ctx context.Context, pluginID string) (*storage.SQLiteStorage, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := initializeDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	sealKey, err := parseSealKey(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	st, err := storage.NewSQLiteFactory(db, sealKey).Create(ctx, pluginID)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to open storage for %s: %w", pluginID, err)
	}
	return st, func() { db.Close() }, nil
}

func runCredsSet(cmd *cobra.Command, args []string) error {
	pluginID, key := args[0], args[1]

	ctx := context.Background()
	st, closeDB, err := openPluginStorage(ctx, pluginID)
	if err != nil {
		return err
	}
	defer closeDB()

	fmt.Printf("Enter value for %s/%s: ", pluginID, key)
	byteValue, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("\nfailed to read value: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm value: ")
	byteConfirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("\nfailed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(byteValue) != string(byteConfirm) {
		return fmt.Errorf("values do not match")
	}
	if len(byteValue) == 0 {
		return fmt.Errorf("value cannot be empty")
	}

	if err := st.SetCredential(ctx, credsCatalogID, key, string(byteValue)); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	fmt.Printf("Stored credential %q for plugin %q.\n", key, pluginID)
	return nil
}

func runCredsClear(cmd *cobra.Command, args []string) error {
	pluginID := args[0]

	ctx := context.Background()
	st, closeDB, err := openPluginStorage(ctx, pluginID)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := st.DeleteCredentials(ctx, credsCatalogID); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	fmt.Printf("Cleared credentials for plugin %q.\n", pluginID)
	return nil
}
