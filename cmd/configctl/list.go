package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list <tenant> <namespace> <resource>",
	Short:   "List every context-specific config under a resource",
	GroupID: "configs",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, namespace, resource := args[0], args[1], args[2]

		configs, err := apiClient.GetAllConfigs(context.Background(), tenant, namespace, resource)
		if err != nil {
			return fmt.Errorf("listing configs: %w", err)
		}

		if jsonOutput {
			printJSON(configs)
			return nil
		}

		if len(configs) == 0 {
			fmt.Println("no configs found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CONTEXT\tUPDATED")
		for _, c := range configs {
			fmt.Fprintf(w, "%v\t%v\n", c["Context"], c["UpdateTimestamp"])
		}
		return w.Flush()
	},
}
