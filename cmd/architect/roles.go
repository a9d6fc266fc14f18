package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/orchestration"
)

var rolesCmd = &cobra.Command{
	Use:   "roles [requirement...]",
	Short: "Show the specialist roles selected for the requirements",
	Long:  `Prints the roles level 1 would consult, one per line, with the integrator last. No model calls are made.`,
	RunE:  runRoles,
}

func init() {
	rootCmd.AddCommand(rolesCmd)
	rolesCmd.Flags().StringVarP(&requirementsPath, "requirements", "r", "", "YAML file with a requirements list")
}

func runRoles(cmd *cobra.Command, args []string) error {
	reqs, err := readRequirements(requirementsPath, args)
	if err != nil {
		return err
	}
	for _, role := range orchestration.SelectRoles(reqs) {
		fmt.Fprintln(cmd.OutOrStdout(), role)
	}
	return nil
}
