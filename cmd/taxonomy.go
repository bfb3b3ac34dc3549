package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/streetlives/util-scripts/internal/model"
	"github.com/streetlives/util-scripts/pkg/directory"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the directory's taxonomy tree",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Directory.BaseURL == "" {
			return eris.New("directory base URL is required (STREETLIVES_DIRECTORY_BASE_URL)")
		}

		dir := directory.NewClient(cfg.Directory.BaseURL,
			directory.WithSource(cfg.Directory.Source))
		tree, err := dir.GetTaxonomyTree(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "fetch taxonomy")
		}

		printTaxonomy(tree, 0)
		return nil
	},
}

func printTaxonomy(nodes []model.TaxonomyNode, depth int) {
	for _, node := range nodes {
		fmt.Printf("%s%s  [%s]\n", strings.Repeat("  ", depth), node.Name, node.ID)
		printTaxonomy(node.Children, depth+1)
	}
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
}
