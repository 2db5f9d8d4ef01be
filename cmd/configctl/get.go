package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:     "get <tenant> <namespace> <resource> <context>",
	Short:   "Read a configuration document",
	GroupID: "configs",
	Args:    cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, namespace, resource, ctxKey := args[0], args[1], args[2], args[3]

		cfg, err := apiClient.GetConfig(context.Background(), tenant, namespace, resource, ctxKey)
		if err != nil {
			return fmt.Errorf("getting config: %w", err)
		}

		printJSON(cfg)
		return nil
	},
}
