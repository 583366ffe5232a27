package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javajack/paramsheet"
)

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Print every cell with its value, format and dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0], false)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), s.Describe())
			return err
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get FILE CELL...",
		Short: "Print the content and value of cells or aliases",
		Long: `Print one tab-separated line per cell: address, content and value.
Cells are named by address (B3) or alias. A value that cannot be computed
is printed as "#ERR" followed by the reason.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0], false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range args[1:] {
				addr, err := lookup(s, name)
				if err != nil {
					return err
				}
				var content string
				if c := s.Cell(addr); c != nil {
					content = c.StringContent()
				}
				value := ""
				if v, err := s.Value(addr); err != nil {
					value = "#ERR " + err.Error()
				} else if v != nil {
					value = paramsheet.FormatValue(v)
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", addr, content, value)
			}
			return nil
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set FILE CELL CONTENT",
		Short: "Set the content of a cell",
		Long: `Set the content of a cell, creating FILE if needed. Content starting
with '=' is a formula, a leading ' keeps the rest as text, and an empty
content clears the cell.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0], true)
			if err != nil {
				return err
			}
			addr, err := lookup(s, args[1])
			if err != nil {
				return err
			}
			if err := s.SetContent(addr, args[2]); err != nil {
				return err
			}
			if c := s.Cell(addr); c != nil && c.HasParseException() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", addr, c.Exception())
			}
			return a.save(s, args[0])
		},
	}
}

func (a *app) aliasCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "alias FILE CELL [NAME]",
		Short: "Set or clear the alias of a cell",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0], true)
			if err != nil {
				return err
			}
			addr, err := lookup(s, args[1])
			if err != nil {
				return err
			}
			var name string
			if len(args) == 3 {
				name = args[2]
			}
			if err := s.SetAlias(addr, name, force); err != nil {
				return err
			}
			return a.save(s, args[0])
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Take the alias over from another cell")
	return cmd
}

func (a *app) modeCmd() *cobra.Command {
	var persistent bool
	cmd := &cobra.Command{
		Use:   "mode FILE CELL MODE",
		Short: "Set the edit mode of a cell",
		Long: `Set the edit mode of a cell. MODE is one of:
  ` + strings.Join(modeNames(), ", "),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0], false)
			if err != nil {
				return err
			}
			addr, err := lookup(s, args[1])
			if err != nil {
				return err
			}
			c, err := s.CreateCell(addr)
			if err != nil {
				return err
			}
			if _, err := c.SetEditModeName(args[2], false); err != nil {
				return err
			}
			c.SetPersistentEditMode(persistent)
			return a.save(s, args[0])
		},
	}
	cmd.Flags().BoolVar(&persistent, "persistent", false, "Keep the edit widget open")
	return cmd
}

func modeNames() []string {
	var names []string
	for _, m := range paramsheet.EditModes() {
		names = append(names, m.String())
	}
	return names
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Report broken formulas, cycles and overlapping spans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0], false)
			if err != nil {
				return err
			}
			issues := s.Validate()
			errs := 0
			for _, is := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), is)
				if is.Severity == paramsheet.SeverityError {
					errs++
				}
			}
			if errs > 0 {
				return fmt.Errorf("%s: %d of %d issues are errors", args[0], errs, len(issues))
			}
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "export FILE WORKBOOK",
		Short: "Write the sheet as an xlsx workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0], false)
			if err != nil {
				return err
			}
			if sheet == "" {
				sheet = a.cfg.WorkbookSheet
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := s.ExportWorkbook(f, sheet); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (default from config)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "import WORKBOOK FILE",
		Short: "Replace the sheet with a worksheet of an xlsx workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			s, err := a.open(args[1], true)
			if err != nil {
				return err
			}
			if err := s.ImportWorkbook(f, sheet); err != nil {
				return err
			}
			return a.save(s, args[1])
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read (default: the first)")
	return cmd
}

func (a *app) copyCmd() *cobra.Command {
	var toStdout bool
	cmd := &cobra.Command{
		Use:   "copy FILE RANGE",
		Short: "Copy a range as tab-separated text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cb paramsheet.Clipboard = paramsheet.SystemClipboard{}
			mem := &paramsheet.MemoryClipboard{}
			if toStdout {
				cb = mem
			}
			s, err := a.open(args[0], false, paramsheet.WithClipboard(cb))
			if err != nil {
				return err
			}
			r, err := paramsheet.ParseRange(args[1])
			if err != nil {
				return err
			}
			if err := s.CopyText(r); err != nil {
				return err
			}
			if toStdout {
				text, _ := mem.ReadText()
				_, err = io.WriteString(cmd.OutOrStdout(), text)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&toStdout, "print", false, "Write to stdout instead of the system clipboard")
	return cmd
}

func (a *app) pasteCmd() *cobra.Command {
	var (
		stdin    bool
		pasteArg string
	)
	cmd := &cobra.Command{
		Use:   "paste FILE CELL",
		Short: "Paste tab-separated text at a cell",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			paste, err := parsePasteType(pasteArg)
			if err != nil {
				return err
			}
			var cb paramsheet.Clipboard = paramsheet.SystemClipboard{}
			if stdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				mem := &paramsheet.MemoryClipboard{}
				if err := mem.WriteText(string(b)); err != nil {
					return err
				}
				cb = mem
			}
			s, err := a.open(args[0], true, paramsheet.WithClipboard(cb))
			if err != nil {
				return err
			}
			addr, err := lookup(s, args[1])
			if err != nil {
				return err
			}
			if err := s.PasteText(addr, paste); err != nil {
				return err
			}
			return a.save(s, args[0])
		},
	}
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read the text from stdin instead of the system clipboard")
	cmd.Flags().StringVar(&pasteArg, "type", "all", "What to paste: all, formula, value or format")
	return cmd
}

func parsePasteType(s string) (paramsheet.PasteType, error) {
	switch s {
	case "all":
		return paramsheet.PasteAll, nil
	case "formula":
		return paramsheet.PasteFormula, nil
	case "value":
		return paramsheet.PasteValue, nil
	case "format":
		return paramsheet.PasteFormat, nil
	}
	return 0, fmt.Errorf("unknown paste type %q", s)
}
