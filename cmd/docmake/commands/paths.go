package commands

import "fmt"

// SourcedirCmd prints the resolved absolute source directory. Exactly
// one line on stdout, so the output is usable in shell substitution.
type SourcedirCmd struct{}

func (s *SourcedirCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	fmt.Println(cfg.SourceDir())
	return nil
}

// BuilddirCmd prints the resolved absolute build directory.
type BuilddirCmd struct{}

func (b *BuilddirCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	fmt.Println(cfg.BuildDir())
	return nil
}
