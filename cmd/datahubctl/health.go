package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// healthReport mirrors the server's /healthz payload, readyReport its
// /readyz payload (which lists per-component states, currently just the
// database).
type healthReport struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

type readyReport struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server liveness and readiness",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := newClient()

	var health healthReport
	if err := client.getJSON("/healthz", &health); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	// /readyz answers 503 while a component is down; report that as
	// not_ready rather than failing the command.
	ready := readyReport{Status: "unknown"}
	if err := client.getJSON("/readyz", &ready); err != nil {
		ready.Status = "not_ready"
	}

	if outputFmt != "table" {
		return printOutput(map[string]any{
			"health":    health,
			"readiness": ready,
		})
	}

	rows := [][]string{
		{"liveness", health.Status},
		{"uptime", health.Uptime},
		{"readiness", ready.Status},
	}
	components := make([]string, 0, len(ready.Components))
	for name := range ready.Components {
		components = append(components, name)
	}
	sort.Strings(components)
	for _, name := range components {
		rows = append(rows, []string{name, ready.Components[name]})
	}
	printTable([]string{"Check", "State"}, rows)
	return nil
}
