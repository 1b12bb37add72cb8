package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/yangwenmai/storeops/internal/engine"
	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/scan"
	"github.com/yangwenmai/storeops/internal/scoring"
	"github.com/yangwenmai/storeops/internal/store"
)

type scanCmd struct {
	env *env

	// flags
	restock    bool
	category   string
	delay      time.Duration
	jsonOutput bool
}

func newScanCmd(e *env) *scanCmd {
	return &scanCmd{env: e}
}

// scanReport is the JSON output of the scan command.
type scanReport struct {
	Scan  model.ShelfScanScenario `json:"scan"`
	Tasks []model.Task            `json:"tasks,omitempty"`
}

// Register adds the scan command to the application.
func (cmd *scanCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "scan",
		Usage:     "Run a simulated shelf scan",
		UsageText: "storeops scan [--restock] [--category NAME] [--json]",
		Description: `Picks one of the catalog's scan scenarios after the analysis delay and
prints its detections and compliance score.

With --restock the low and empty detections are converted into restock
tasks against a freshly seeded task board.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "restock",
				Usage:       "create restock tasks for low and empty detections",
				Destination: &cmd.restock,
			},
			&cli.StringFlag{
				Name:        "category",
				Usage:       "category tagged on created tasks (defaults to CATEGORY)",
				Destination: &cmd.category,
			},
			&cli.DurationFlag{
				Name:        "delay",
				Usage:       "analysis delay (defaults to SCAN_DELAY)",
				Value:       -1,
				Destination: &cmd.delay,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *scanCmd) run(ctx context.Context, c *cli.Command) error {
	category := cmd.env.cfg.Category
	if cmd.category != "" {
		parsed, ok := model.ParseCategory(cmd.category)
		if !ok {
			return fmt.Errorf("unknown category %q", cmd.category)
		}
		category = parsed
	}
	delay := cmd.env.cfg.ScanDelay
	if cmd.delay >= 0 {
		delay = cmd.delay
	}

	analyzer, err := scan.NewAnalyzer(cmd.env.cat.Scenarios,
		scan.WithDelay(delay),
		scan.WithLogger(cmd.env.log),
	)
	if err != nil {
		return err
	}
	result, err := analyzer.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	var tasks []model.Task
	if cmd.restock {
		tasks, err = cmd.restockTasks(ctx, result, category)
		if err != nil {
			return err
		}
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scanReport{Scan: result, Tasks: tasks})
	}

	fmt.Fprintf(out, "Scan %s (%s)\n", result.SessionID, result.Name)
	fmt.Fprintf(out, "Compliance: %d (%s)\n", result.ComplianceScore, scoring.BandFor(result.ComplianceScore))
	s := result.Summary
	fmt.Fprintf(out, "Correct %d  Misplaced %d  Low %d  Empty %d  Facing issues %d  Expected %d\n",
		s.Correct, s.Misplaced, s.Low, s.Empty, s.FacingIssues, s.TotalExpectedSKUs)
	for _, d := range result.DetectedItems {
		if d.Type == model.DetectedCorrect {
			continue
		}
		fmt.Fprintf(out, "  %-4s %-9s %s\n", d.ID, d.Type, d.Tooltip)
	}
	if cmd.restock {
		fmt.Fprintf(out, "\nCreated %d task(s):\n", len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(out, "  %s  %s  [%s]\n", t.ID, t.Description, t.Category)
		}
	}
	return nil
}

func (cmd *scanCmd) restockTasks(ctx context.Context, result model.ShelfScanScenario, category model.Category) ([]model.Task, error) {
	db, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	s, err := store.New(db)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	pipeline, err := engine.NewPipeline(s, cmd.env.cat,
		engine.WithLogger(cmd.env.log),
		engine.WithInitialState(category, cmd.env.cfg.Persona),
	)
	if err != nil {
		return nil, err
	}
	if err := pipeline.Seed(ctx); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return pipeline.RestockFromScan(ctx, result, category)
}
