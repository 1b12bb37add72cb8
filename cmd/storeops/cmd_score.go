package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/scoring"
)

type scoreCmd struct {
	summary    model.ScanSummary
	jsonOutput bool
}

func newScoreCmd() *scoreCmd {
	return &scoreCmd{}
}

// Register adds the score command to the application.
func (cmd *scoreCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "score",
		Usage:     "Compute the compliance score of a scan summary",
		UsageText: "storeops score --correct N --misplaced N --low N --empty N --expected N --facing N [--json]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "correct", Usage: "correctly placed products", Destination: &cmd.summary.Correct},
			&cli.IntFlag{Name: "misplaced", Usage: "misplaced products", Destination: &cmd.summary.Misplaced},
			&cli.IntFlag{Name: "low", Usage: "low stock slots", Destination: &cmd.summary.Low},
			&cli.IntFlag{Name: "empty", Usage: "empty slots", Destination: &cmd.summary.Empty},
			&cli.IntFlag{Name: "expected", Usage: "SKUs the planogram expects", Destination: &cmd.summary.TotalExpectedSKUs},
			&cli.IntFlag{Name: "facing", Usage: "products with facing issues", Destination: &cmd.summary.FacingIssues},
			&cli.BoolFlag{Name: "json", Usage: "output the breakdown as JSON", Destination: &cmd.jsonOutput},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *scoreCmd) run(ctx context.Context, c *cli.Command) error {
	b := scoring.Compute(cmd.summary)
	out := c.Root().Writer

	if cmd.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Placement\t%.2f\n", b.Placement)
	fmt.Fprintf(w, "Misplaced\t%.2f\n", b.Misplaced)
	fmt.Fprintf(w, "Fill\t%.2f\n", b.Fill)
	fmt.Fprintf(w, "Variety\t%.2f\n", b.Variety)
	fmt.Fprintf(w, "Facing\t%.2f\n", b.Facing)
	fmt.Fprintf(w, "Score\t%d (%s)\n", b.Total, b.Band)
	return w.Flush()
}
