// Command paramsheet inspects and edits parameter sheets stored as sheet
// XML documents, and converts them to and from xlsx workbooks.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/javajack/paramsheet"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	verbose    bool
	cfg        Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: DefaultConfig(), log: slog.New(slog.DiscardHandler)}
	root := &cobra.Command{
		Use:   "paramsheet",
		Short: "Parameter sheet commands",
		Long: `Inspect and edit parameter sheets saved as sheet XML.

Commands:
  show      Print every cell with its value, format and dependencies.
  get       Print the content and value of cells or aliases.
  set       Set the content of a cell.
  alias     Set or clear the alias of a cell.
  mode      Set the edit mode of a cell.
  validate  Report broken formulas, cycles and overlapping spans.
  export    Write the sheet as an xlsx workbook.
  import    Replace the sheet with a worksheet of an xlsx workbook.
  copy      Copy a range as tab-separated text.
  paste     Paste tab-separated text at a cell.

Examples:
  paramsheet set params.xml A1 "10 mm"
  paramsheet alias params.xml A1 Width
  paramsheet set params.xml B1 "=Width * 2"
  paramsheet get params.xml B1 Width
  paramsheet export params.xml params.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default: "+DefaultConfigFile+" when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		a.showCmd(),
		a.getCmd(),
		a.setCmd(),
		a.aliasCmd(),
		a.modeCmd(),
		a.validateCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.copyCmd(),
		a.pasteCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	level, err := cfg.level()
	if err != nil {
		return err
	}
	if a.verbose {
		level = slog.LevelDebug
	}
	a.cfg = cfg
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// open restores the sheet at path. With create, a missing file yields an
// empty sheet.
func (a *app) open(path string, create bool, opts ...paramsheet.Option) (*paramsheet.PropertySheet, error) {
	s := paramsheet.NewSheet(append(a.cfg.SheetOptions(a.log), opts...)...)
	f, err := os.Open(path)
	if err != nil {
		if create && errors.Is(err, fs.ErrNotExist) {
			a.log.Debug("starting new sheet", "path", path)
			return s, nil
		}
		return nil, err
	}
	defer f.Close()
	if err := s.Restore(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (a *app) save(s *paramsheet.PropertySheet, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// lookup resolves an address or alias argument.
func lookup(s *paramsheet.PropertySheet, name string) (paramsheet.CellAddress, error) {
	addr, ok := s.AddressOf(name)
	if !ok {
		return addr, fmt.Errorf("%q: %w", name, paramsheet.ErrNotFound)
	}
	return addr, nil
}
