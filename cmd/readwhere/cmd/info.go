package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cedricziel/readwhere/internal/comic"
	"github.com/cedricziel/readwhere/internal/plugin"
)

var (
	infoShowPages bool
	infoProbeDims bool
)

func init() {
	infoCmd := &cobra.Command{
		Use:   "info <archive>",
		Short: "Print metadata for a comic archive",
		Long:  `Open a comic archive with the plugin that claims it and print the resolved metadata and page listing.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
	infoCmd.Flags().BoolVar(&infoShowPages, "pages", false, "list individual pages")
	infoCmd.Flags().BoolVar(&infoProbeDims, "dims", false, "probe page dimensions (enables double-page detection)")

	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := initializeDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, err := buildRegistry(ctx, cfg, db, comic.PageOptions{
		ProbeDimensions:    infoProbeDims,
		FullDecodeFallback: infoProbeDims,
	})
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

	book, err := rc.ParseMetadata(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Title:       %s\n", book.DisplayTitle)
	if book.Series != "" {
		fmt.Fprintf(out, "Series:      %s", book.Series)
		if book.IssueNumber != "" {
			fmt.Fprintf(out, " #%s", book.IssueNumber)
		}
		fmt.Fprintln(out)
	}
	if book.Publisher != "" {
		fmt.Fprintf(out, "Publisher:   %s\n", book.Publisher)
	}
	if book.Author != "" {
		fmt.Fprintf(out, "Author:      %s\n", book.Author)
	}
	if book.ReleaseDate != nil {
		fmt.Fprintf(out, "Released:    %s\n", book.ReleaseDate.Format("2006-01-02"))
	}
	if genres := book.Genres(); len(genres) > 0 {
		fmt.Fprintf(out, "Genres:      %s\n", strings.Join(genres, ", "))
	}
	if lang := book.Language(); lang != "" {
		fmt.Fprintf(out, "Language:    %s\n", lang)
	}
	fmt.Fprintf(out, "Direction:   %s\n", book.ReadingDirection)
	fmt.Fprintf(out, "Metadata:    %s\n", book.MetadataSource)
	fmt.Fprintf(out, "Pages:       %d\n", book.PageCount())

	if infoShowPages {
		fmt.Fprintln(out)
		for _, p := range book.Pages {
			marker := " "
			if p.IsDoublePage {
				marker = "D"
			}
			dims := ""
			if p.Width > 0 {
				dims = fmt.Sprintf(" %dx%d", p.Width, p.Height)
			}
			fmt.Fprintf(out, "%4d %s %-12s %s%s\n", p.Index, marker, p.Type, p.Path, dims)
		}
	}
	return nil
}
