package main

import (
	"fmt"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/cli"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/presentation/graph"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/memory"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <product-slug>",
	Short: "Export the builder flow of a product",
	Long: `Outputs a Mermaid diagram (graph TD) of the customization steps of a product.
With --session, the steps a customer already went through are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cat, err := memory.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		p, err := cat.GetProduct(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !p.Customizable() {
			return fmt.Errorf("%w: %s", domain.ErrNoSteps, p.Slug)
		}

		var overlay *graph.Overlay
		if phone, _ := cmd.Flags().GetString("session"); phone != "" {
			store, closeStore, err := cli.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			sess, err := store.Load(cmd.Context(), phone)
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", phone, err)
			}
			if bm, ok := sess.Mode.(domain.BuilderMode); ok {
				overlay = graph.OverlayFrom(*p, bm.State)
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(*p, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the progress of this customer's session")
}
