package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docmake/internal/history"
)

// HistoryCmd prints recent builds from the history store.
type HistoryCmd struct {
	Limit int           `short:"n" default:"20" help:"Number of builds to show"`
	Prune time.Duration `help:"Delete records older than this age before listing (e.g. 720h)"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	path := cfg.HistoryPath()
	if path == "" {
		return fmt.Errorf("build history is disabled")
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if h.Prune > 0 {
		removed, err := store.Prune(context.Background(), time.Now().Add(-h.Prune))
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d records\n", removed)
	}

	records, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tMODE\tOUTCOME\tDURATION\tERROR")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.StartedAt.Format(time.RFC3339), rec.Mode, rec.Outcome,
			rec.Duration.Round(time.Millisecond), rec.Error)
	}
	return w.Flush()
}
