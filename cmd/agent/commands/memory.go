// ABOUTME: CLI commands to search and add long-term memories directly
// ABOUTME: Uses the backend selected by AGENT_MEMORY_BACKEND
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/core"
	"github.com/harper/local-agent-core/internal/memory"
	"github.com/harper/local-agent-core/internal/models"
)

var (
	memoryRoute  string
	memoryUser   string
	searchLimit  int
	memoryDomain string
)

// errMemoryDisabled is returned when no memory backend is configured
var errMemoryDisabled = errors.New("long-term memory is disabled; set AGENT_MEMORY_BACKEND to openmemory or sqlite")

// NewMemoryCmd creates the memory command group
func NewMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Search or add long-term memories",
		Long: `Search or add long-term memories in the configured store.

Examples:
  agent memory search "standup notes"
  agent memory search --route agent --limit 10 "tea"
  agent memory add --route general "I drink oolong in the morning"`,
	}

	cmd.PersistentFlags().StringVar(&memoryRoute, "route", "", "Route alias to filter or tag by")
	cmd.PersistentFlags().StringVar(&memoryUser, "user", "", "User id (default: AGENT_USER_ID)")

	cmd.AddCommand(newMemorySearchCmd(), newMemoryAddCmd())
	return cmd
}

func newMemorySearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search long-term memories",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMemorySearch,
	}
	cmd.Flags().IntVar(&searchLimit, "limit", memory.DefaultLimit, "Maximum results to return")
	return cmd
}

func newMemoryAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add a long-term memory",
		Args:  cobra.ArbitraryArgs,
		RunE:  runMemoryAdd,
	}
	cmd.Flags().StringVar(&memoryDomain, "domain", "", "Memory domain (default: AGENT_MEMORY_DOMAIN)")
	return cmd
}

// withMemoryStore opens the configured store, runs fn and closes it
func withMemoryStore(fn func(cfg *config.Config, store memory.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store, closer, err := openMemory(cfg)
	if err != nil {
		return fmt.Errorf("opening memory store: %w", err)
	}
	if store == nil {
		return errMemoryDisabled
	}
	if closer != nil {
		defer closer.Close()
	}
	return fn(cfg, store)
}

func userOrDefault(cfg *config.Config) string {
	switch {
	case memoryUser != "":
		return memoryUser
	case cfg.UserID != "":
		return cfg.UserID
	}
	return core.DefaultUserKey
}

func runMemorySearch(cmd *cobra.Command, args []string) error {
	if searchLimit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", searchLimit)
	}
	query := strings.Join(args, " ")

	return withMemoryStore(func(cfg *config.Config, store memory.Store) error {
		items, err := store.Search(cmd.Context(), memory.Query{
			Text:   query,
			UserID: userOrDefault(cfg),
			Route:  memoryRoute,
			Limit:  searchLimit,
		})
		if err != nil {
			return fmt.Errorf("searching memories: %w", err)
		}
		return printMemories(cmd.OutOrStdout(), query, items, outputFormat == "json")
	})
}

func printMemories(out io.Writer, query string, items []models.MemoryItem, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}
	if len(items) == 0 {
		if !quiet {
			fmt.Fprintf(out, "No memories found for query: %s\n", query)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tTAGS\tPREVIEW\n")
	fmt.Fprintf(w, "-----\t----\t-------\n")
	for _, item := range items {
		score := "-"
		if item.Score != nil {
			score = fmt.Sprintf("%.3f", *item.Score)
		}
		preview := strings.ReplaceAll(item.Content, "\n", " ")
		fmt.Fprintf(w, "%s\t%s\t%s\n", score, truncate(strings.Join(item.Tags, ","), 30), truncate(preview, 70))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(out, "\nFound %d result(s)\n", len(items))
	}
	return nil
}

func runMemoryAdd(cmd *cobra.Command, args []string) error {
	text, err := readText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("no text provided")
	}

	return withMemoryStore(func(cfg *config.Config, store memory.Store) error {
		domain := memoryDomain
		if domain == "" {
			domain = cfg.MemoryDomain
		}
		err := store.AddInteraction(cmd.Context(), memory.Interaction{
			UserText: text,
			UserID:   userOrDefault(cfg),
			Route:    memoryRoute,
			Metadata: map[string]interface{}{
				memory.KeyMemoryDomain: domain,
				memory.KeyChannel:      string(models.ChannelInteractive),
			},
		})
		if err != nil {
			return fmt.Errorf("adding memory: %w", err)
		}
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "Memory added.")
		}
		return nil
	})
}
