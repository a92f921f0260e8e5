package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"adforge/internal/config"
	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/logger"
	"adforge/internal/pipeline"
	"adforge/internal/scrape"
	"adforge/internal/store"
	"adforge/internal/trends"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full generation pipeline for a company",
	Long: `Run every stage end to end: extract the brand context from the URL,
generate buyer personas, generate idea batches for the chosen persona, score
all ideas, and render image and video assets for the top-ranked ones.

Without --persona the command lists the generated personas and asks which one
to use.

Example:
  adforge run --url https://example.com --uvp "Ship faster with less toil"
  adforge run --url https://example.com --uvp "..." --persona 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		uvp, _ := cmd.Flags().GetString("uvp")
		personaIndex, _ := cmd.Flags().GetInt("persona")

		if url == "" || uvp == "" {
			return fmt.Errorf("--url and --uvp are required")
		}
		return runPipeline(cmd.Context(), url, uvp, personaIndex)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("url", "", "Company website URL")
	runCmd.Flags().String("uvp", "", "Unique value proposition")
	runCmd.Flags().Int("persona", -1, "Anchor persona index (1-based); omit to choose interactively")
}

// buildDeps constructs the shared pipeline dependencies from config.
func buildDeps(ctx context.Context, cfg *config.Config) (*llm.Gemini, *store.Store, *scrape.Sampler, *trends.Scorer, error) {
	gemini, err := llm.NewGemini(ctx, cfg.AI.Gemini)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	st, err := store.New(cfg.App.DataDir)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	scorer := trends.NewScorer(
		trends.NewHTTPProvider(cfg.Trends.BaseURL),
		cfg.Trends.LookbackDays,
		cfg.Trends.KeywordsPerIdea,
		cfg.Trends.Geo,
	)

	return gemini, st, scrape.NewSampler(), scorer, nil
}

func runPipeline(ctx context.Context, url, uvp string, personaIndex int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gemini, st, sampler, scorer, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	selector := promptPersonaChoice
	if personaIndex > 0 {
		selector = pipeline.FixedPersona(personaIndex - 1)
	}

	runner := &pipeline.Runner{
		Config:  cfg,
		Client:  llm.NewClient(gemini),
		Media:   gemini,
		Store:   st,
		Sampler: sampler,
		Trends:  scorer,
	}

	result, err := runner.Run(ctx, pipeline.RunOptions{
		URL:           url,
		UVP:           uvp,
		SelectPersona: selector,
	})
	if err != nil {
		logger.Error("Run failed", err)
		return err
	}

	printRunSummary(result)
	return nil
}

// promptPersonaChoice lists the personas on stdout and reads a 1-based choice
// from stdin.
func promptPersonaChoice(personas []core.Persona) (int, error) {
	fmt.Println("\nGenerated personas:")
	fmt.Println("===================")
	for i, persona := range personas {
		fmt.Printf("%d. %s — %s (%s)\n", i+1, persona.Name, persona.Role, persona.CompanySize)
		if len(persona.PainPoints) > 0 {
			fmt.Printf("   Pain points: %s\n", strings.Join(persona.PainPoints, "; "))
		}
	}
	fmt.Printf("\nSelect a persona (1-%d): ", len(personas))

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("failed to read persona choice: %w", err)
	}

	choice, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || choice < 1 || choice > len(personas) {
		return 0, fmt.Errorf("invalid persona choice %q", strings.TrimSpace(input))
	}
	return choice - 1, nil
}

func printRunSummary(result *pipeline.RunResult) {
	fmt.Println("\nRun complete")
	fmt.Println("============")
	fmt.Printf("Experiment: %s\n", result.ExperimentID)
	fmt.Printf("Artifacts:  %s\n", result.RunDir)
	fmt.Printf("Persona:    %s (%s)\n", result.Anchor.Name, result.Anchor.Role)
	fmt.Printf("Ideas:      %d generated, %d scored\n", len(result.Ideas), len(result.Scores))

	top := pipeline.RankByFinalScore(result.Scores)
	if len(top) > 5 {
		top = top[:5]
	}
	if len(top) > 0 {
		fmt.Println("\nTop ideas:")
		byScript := make(map[string]string, len(result.Ideas))
		for _, idea := range result.Ideas {
			byScript[idea.ScriptID] = idea.Headline
		}
		for i, score := range top {
			fmt.Printf("%d. [%d] %s\n", i+1, score.FinalScore, byScript[score.ScriptID])
		}
	}

	fmt.Printf("\nAssets: %d briefs, %d images, %d videos\n",
		len(result.Assets.Briefs), len(result.Assets.ImagesWritten), len(result.Assets.VideosWritten))
}
