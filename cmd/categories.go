package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opendata-madrid/places-cli/internal/catalog"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Print the category catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("categories"); err != nil {
			return err
		}

		cat := catalog.Default()
		if cfg.Catalog.Path != "" {
			var err error
			cat, err = catalog.LoadFile(cfg.Catalog.Path)
			if err != nil {
				return err
			}
		}

		formatCategoryList(os.Stdout, cat.Categories)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

// formatCategoryList writes a tabular list of categories to out.
func formatCategoryList(out io.Writer, cats []catalog.Category) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tNAME\tTAXONOMY")
	_, _ = fmt.Fprintln(w, "----\t----\t--------")

	for _, c := range cats {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", c.Code, c.Name, c.Taxonomy)
	}
	_ = w.Flush()
}
