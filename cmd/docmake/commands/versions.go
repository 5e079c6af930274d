package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"git.home.luguber.info/inful/docmake/internal/versioning"
)

// VersionsCmd lists the git refs a multi-version build would cover.
type VersionsCmd struct{}

func (v *VersionsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	versions, err := versioning.Discover(cfg.ProjectDir(), cfg.Versioning)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tDISPLAY\tCOMMIT")
	for _, version := range versions {
		commit := version.CommitSHA
		if len(commit) > 12 {
			commit = commit[:12]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", version.Name, version.Type, version.DisplayName, commit)
	}
	return w.Flush()
}
