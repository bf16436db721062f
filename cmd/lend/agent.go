package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	agentapi "github.com/cexll/agentsdk-go/pkg/api"
	"github.com/cexll/agentsdk-go/pkg/model"
	"github.com/spf13/cobra"

	"github.com/projectlend/lend/internal/database"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Operator console: ask about inventory, shelter demand, and matching",
	RunE:  runAgent,
}

var agentPrompt string

func init() {
	agentCmd.Flags().StringVarP(&agentPrompt, "prompt", "p", "", "Single prompt to run (non-interactive)")
	agentCmd.Flags().StringVar(&dbPath, "db", envOr("DB_PATH", "./donations.db"), "SQLite donation log path")
	rootCmd.AddCommand(agentCmd)
}

const agentModel = "claude-3-5-haiku-latest"

const agentSystemPromptHeader = `You are the operator console for Project Lend, an autonomous food bank
donation system. A camera-and-arm pipeline sorts donated items into fruit,
snack, and drink bins and logs every donation.

You help the operator with:
- Inventory questions: what has been donated, category totals, weights
- Shelter demand: which registered shelters need which categories
- Matching: which donations should go where

Current data follows. Be concise and action-oriented; suggest next steps.`

// buildAgentContext snapshots the live inventory and registry into the
// system prompt so the console can answer without tool round-trips.
func buildAgentContext(ctx context.Context, donations *database.DonationRepository, shelters *database.ShelterRepository) (string, error) {
	stats, err := donations.Stats(ctx)
	if err != nil {
		return "", fmt.Errorf("load inventory stats: %w", err)
	}
	demand, err := shelters.DemandSummary(ctx)
	if err != nil {
		return "", fmt.Errorf("load shelter demand: %w", err)
	}
	active, err := shelters.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("load shelters: %w", err)
	}

	statsJSON, _ := json.MarshalIndent(stats, "", "  ")
	demandJSON, _ := json.MarshalIndent(demand, "", "  ")

	var sb strings.Builder
	sb.WriteString(agentSystemPromptHeader)
	sb.WriteString("\n\nInventory stats:\n")
	sb.Write(statsJSON)
	sb.WriteString("\n\nDemand summary (active shelters needing each category):\n")
	sb.Write(demandJSON)
	sb.WriteString("\n\nActive shelters:\n")
	if len(active) == 0 {
		sb.WriteString("(none registered yet)\n")
	}
	for _, s := range active {
		needs := strings.Join(s.CategoriesNeeded, ", ")
		if needs == "" {
			needs = "unknown"
		}
		fmt.Fprintf(&sb, "- #%d %s: needs %s\n", s.ID, s.Name, needs)
	}
	return sb.String(), nil
}

func runAgent(cmd *cobra.Command, args []string) error {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	db, err := database.NewDB(database.Config{Path: dbPath})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	sysPrompt, err := buildAgentContext(ctx,
		database.NewDonationRepository(db), database.NewShelterRepository(db))
	if err != nil {
		return err
	}

	rt, err := agentapi.New(ctx, agentapi.Options{
		ProjectRoot: ".",
		ModelFactory: &model.AnthropicProvider{
			APIKey:    apiKey,
			ModelName: agentModel,
			MaxTokens: 4096,
		},
		SystemPrompt:  sysPrompt,
		MaxIterations: 25,
	})
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close()

	if agentPrompt != "" {
		resp, err := rt.Run(ctx, agentapi.Request{Prompt: agentPrompt, SessionID: "cli"})
		if err != nil {
			return fmt.Errorf("agent error: %w", err)
		}
		if resp != nil && resp.Result != nil {
			fmt.Println(resp.Result.Output)
		}
		return nil
	}

	fmt.Println("lend operator console (type 'exit' to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		resp, err := rt.Run(ctx, agentapi.Request{Prompt: input, SessionID: "cli-repl"})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if resp != nil && resp.Result != nil {
			fmt.Println(resp.Result.Output)
		}
	}
	return nil
}
