package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tresde/api/internal/app"
	"tresde/api/internal/authpw"
	"tresde/api/internal/export"
)

var (
	importReplace bool
	exportXLSX    string
	exportJSON    string
)

var seedCmd = &cobra.Command{
	Use:   "seed <catalog.json>",
	Short: "Load the initial catalog from a JSON file",
	Long: `Load tours and brands from a JSON file into an empty store.

The file is either {"gemelos": [...], "marcas": [...]} or a bare array of
tours, newest first. Records whose id already exists are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := readSnapshot(args[0])
		if err != nil {
			return err
		}
		return runImport(cmd, snap, false)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.json>",
	Short: "Import a catalog export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := readSnapshot(args[0])
		if err != nil {
			return err
		}
		return runImport(cmd, snap, importReplace)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog as a spreadsheet or JSON",
	Long: `Export every tour and brand. Without --xlsx or --json the JSON export is
written to stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Long:  `Hash the given password, or the first line of stdin when none is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		hash, err := authpw.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "overwrite records whose id already exists")
	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "write a workbook to this path")
	exportCmd.Flags().StringVar(&exportJSON, "json", "", "write JSON to this path")
}

func readSnapshot(path string) (export.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return export.Snapshot{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return export.ReadXLSX(f)
	case ".json":
		return export.ReadJSON(f)
	default:
		return export.Snapshot{}, fmt.Errorf("unsupported file type %q (want .xlsx or .json)", filepath.Ext(path))
	}
}

func runImport(cmd *cobra.Command, snap export.Snapshot, replace bool) error {
	catalog, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}
	defer catalog.Close()

	res, err := export.Import(cmd.Context(), catalog, snap, export.ImportOptions{
		ValidateGemelo: app.ValidateGemelo,
		ValidateMarca:  app.ValidateMarca,
		Replace:        replace,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "gemelos: %d created, %d updated, %d skipped\n", res.GemelosCreated, res.GemelosUpdated, res.GemelosSkipped)
	fmt.Fprintf(cmd.OutOrStdout(), "marcas: %d created, %d updated, %d skipped\n", res.MarcasCreated, res.MarcasUpdated, res.MarcasSkipped)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}
	defer catalog.Close()

	snap, err := export.Load(cmd.Context(), catalog)
	if err != nil {
		return err
	}

	if exportXLSX == "" && exportJSON == "" {
		return export.WriteJSON(cmd.OutOrStdout(), snap)
	}
	if exportXLSX != "" {
		if err := writeFile(exportXLSX, func(w io.Writer) error { return export.WriteXLSX(w, snap) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportXLSX)
	}
	if exportJSON != "" {
		if err := writeFile(exportJSON, func(w io.Writer) error { return export.WriteJSON(w, snap) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportJSON)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
