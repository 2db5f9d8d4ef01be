package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <tenant> <namespace> <resource> <context>",
	Short:   "Delete a configuration document",
	GroupID: "configs",
	Args:    cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, namespace, resource, ctxKey := args[0], args[1], args[2], args[3]

		if err := apiClient.DeleteConfig(context.Background(), tenant, namespace, resource, ctxKey); err != nil {
			return fmt.Errorf("deleting config: %w", err)
		}

		fmt.Printf("deleted %s/%s/%s/%s\n", tenant, namespace, resource, ctxKey)
		return nil
	},
}
