package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:     "set <tenant> <namespace> <resource> <context> <config-json>",
	Short:   "Write a configuration document",
	GroupID: "configs",
	Args:    cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, namespace, resource, ctxKey, configJSON := args[0], args[1], args[2], args[3], args[4]

		var config any
		if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
			return fmt.Errorf("parsing config JSON: %w", err)
		}

		var upsertCondition any
		if raw, _ := cmd.Flags().GetString("if"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &upsertCondition); err != nil {
				return fmt.Errorf("parsing --if condition JSON: %w", err)
			}
		}

		result, err := apiClient.WriteConfig(context.Background(), tenant, namespace, resource, ctxKey, config, upsertCondition)
		if err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		printJSON(result)
		return nil
	},
}

func init() {
	setCmd.Flags().String("if", "", "upsert precondition as a filter expression JSON object")
}
