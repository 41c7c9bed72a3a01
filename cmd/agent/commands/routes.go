// ABOUTME: CLI command to list configured route aliases
// ABOUTME: Shows each alias with its resolved model, format and flags
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/local-agent-core/internal/config"
)

// NewRoutesCmd creates the routes command
func NewRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List configured routes",
		Long: `List the route aliases from the router file with their resolved settings.

Examples:
  agent routes
  agent routes --format json`,
		Args: cobra.NoArgs,
		RunE: runRoutes,
	}

	return cmd
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	router, err := loadRouter(cfg)
	if err != nil {
		return err
	}
	return printRoutes(cmd.OutOrStdout(), router, outputFormat == "json")
}

func printRoutes(out io.Writer, router *config.Router, asJSON bool) error {
	names := router.Names()

	if asJSON {
		routes := make([]interface{}, 0, len(names))
		for _, name := range names {
			route, err := router.Resolve(name)
			if err != nil {
				routes = append(routes, map[string]string{"name": name, "error": err.Error()})
				continue
			}
			routes = append(routes, route)
		}
		data, err := json.MarshalIndent(routes, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ALIAS\tMODEL\tAPI\tFORMAT\tORCH\tMEMORY\tFRAMING\n")
	fmt.Fprintf(w, "-----\t-----\t---\t------\t----\t------\t-------\n")
	for _, name := range names {
		route, err := router.Resolve(name)
		if err != nil {
			fmt.Fprintf(w, "%s\t(error)\t\t\t\t\t%s\n", name, truncate(err.Error(), 60))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			route.Name,
			route.Model,
			route.BackendAPI,
			route.Format,
			yesNo(route.OrchestrationEnabled),
			yesNo(route.MemoryEnabled),
			route.ResponseFraming)
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
