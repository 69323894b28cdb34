package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"partsadmin/internal/catalog"
	"partsadmin/internal/config"
	"partsadmin/internal/productform"
)

// app carries what every command needs once flags are parsed.
type app struct {
	api      *catalog.Client
	messages *productform.Messages
	policy   productform.SuccessPolicy
}

func newRootCmd() *cobra.Command {
	var apiURL string
	a := &app{}

	root := &cobra.Command{
		Use:           "partsctl",
		Short:         "Manage shop products from the terminal",
		Long:          `partsctl creates and edits products of the parts shop through its REST API, using the same form rules as the admin panel.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.APIBaseURL = apiURL
			}
			if a.messages, err = productform.LoadMessages(cfg.Locale); err != nil {
				return err
			}
			if a.policy, err = productform.ParsePolicy(cfg.SubmitPolicy); err != nil {
				return err
			}
			a.api = catalog.New(cfg.APIBaseURL, catalog.WithToken(cfg.APIToken))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "", "shop API base URL (overrides API_BASE_URL)")

	root.AddCommand(
		newCategoriesCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
