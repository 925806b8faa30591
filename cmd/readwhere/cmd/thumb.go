package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cedricziel/readwhere/internal/comic"
	"github.com/cedricziel/readwhere/internal/imaging"
	"github.com/cedricziel/readwhere/internal/plugin"
)

var (
	thumbOutput string
	thumbPreset string
	thumbPage   int
)

func init() {
	thumbCmd := &cobra.Command{
		Use:   "thumb <archive>",
		Short: "Generate a thumbnail from a comic archive",
		Long:  `Extract the cover (or a specific page) of a comic archive and write a downscaled thumbnail.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runThumb,
	}
	thumbCmd.Flags().StringVarP(&thumbOutput, "output", "o", "thumb.jpg", "output file")
	thumbCmd.Flags().StringVar(&thumbPreset, "preset", "cover", "thumbnail preset (cover, grid, small, large)")
	thumbCmd.Flags().IntVar(&thumbPage, "page", -1, "page index instead of the cover")

	rootCmd.AddCommand(thumbCmd)
}

func runThumb(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var opts imaging.Options
	switch thumbPreset {
	case "cover":
		opts = cfg.Thumbnails.Cover.Options()
	case "grid":
		opts = cfg.Thumbnails.Grid.Options()
	case "small":
		opts = cfg.Thumbnails.Small.Options()
	case "large":
		opts = cfg.Thumbnails.Large.Options()
	default:
		return fmt.Errorf("unknown preset %q", thumbPreset)
	}

	ctx := context.Background()
	db, err := initializeDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, err := buildRegistry(ctx, cfg, db, comic.PageOptions{})
	if err != nil {
		return err
	}
	defer reg.Clear(ctx)

	rc, ok, err := plugin.ForFile[plugin.ReaderCapability](ctx, reg, args[0])
	if err != nil {
		return fmt.Errorf("failed to probe %s: %w", args[0], err)
	}
	if !ok {
		return fmt.Errorf("no plugin can handle %s", args[0])
	}

	var data []byte
	if thumbPage < 0 {
		data, err = rc.ExtractCover(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to extract cover: %w", err)
		}
	} else {
		rd, err := rc.OpenBook(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer rd.Dispose()
		data, err = rd.PageBytes(ctx, thumbPage)
		if err != nil {
			return fmt.Errorf("failed to read page %d: %w", thumbPage, err)
		}
	}

	thumb, err := imaging.Generate(data, opts)
	if err != nil {
		return fmt.Errorf("failed to generate thumbnail: %w", err)
	}

	if err := os.WriteFile(thumbOutput, thumb, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", thumbOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", thumbOutput, len(thumb))
	return nil
}
