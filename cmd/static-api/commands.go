package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/static-api/staticapi/export"
	"github.com/arthur-debert/static-api/staticapi/imports"
	"github.com/spf13/cobra"
)

// addCollectionsCommand adds the collections command
func (cli *CLI) addCollectionsCommand() {
	collectionsCmd := &cobra.Command{
		Use:   "collections",
		Short: "List the collections in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.executeCollections(cmd.Context())
		},
	}
	cli.rootCmd.AddCommand(collectionsCmd)
}

// addShowCommand adds the show command
func (cli *CLI) addShowCommand() {
	showCmd := &cobra.Command{
		Use:   "show <collection>",
		Short: "Print one page of a collection",
		Long: `Print a page of a collection in the same shape the API returns for
GET /api/{collection}. A missing collection is created empty.

Examples:
  static-api show widgets
  static-api show widgets --skip 10 --limit 5 --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.executeShow(cmd, args[0])
		},
	}
	showCmd.Flags().Int("skip", 0, "Number of records to skip")
	showCmd.Flags().Int("limit", 30, "Maximum number of records to print")
	cli.rootCmd.AddCommand(showCmd)
}

// addExportCommand adds the export command
func (cli *CLI) addExportCommand() {
	exportCmd := &cobra.Command{
		Use:   "export [collection...]",
		Short: "Write a zip archive of the collections",
		Long: `Write a zip archive holding a manifest and one file per collection.
With no arguments every collection is exported.

Examples:
  static-api export
  static-api export widgets users --format yaml --output fixtures.zip`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return cli.executeExport(cmd.Context(), args, output)
		},
	}
	exportCmd.Flags().StringP("output", "o", "", "Archive path (default: timestamped name in the current directory)")
	cli.rootCmd.AddCommand(exportCmd)
}

// addImportCommand adds the import command
func (cli *CLI) addImportCommand() {
	importCmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Load collections from a directory or zip archive",
		Long: `Load collections from a directory of .json/.yaml files or from a zip
archive such as one written by 'static-api export'. Collections that already
exist are left alone unless --overwrite is given.

Examples:
  static-api import fixtures.zip
  static-api import ./seed --collection widgets --overwrite
  static-api import fixtures.zip --dry-run --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overwrite, _ := cmd.Flags().GetBool("overwrite")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			collections, _ := cmd.Flags().GetStringSlice("collection")
			return cli.executeImport(cmd.Context(), args[0], imports.ImportOptions{
				Collections: collections,
				Overwrite:   overwrite,
				DryRun:      dryRun,
			})
		},
	}
	importCmd.Flags().Bool("overwrite", false, "Replace collections that already exist")
	importCmd.Flags().Bool("dry-run", false, "Validate the source without writing anything")
	importCmd.Flags().StringSlice("collection", nil, "Import only the named collections (repeatable)")
	cli.rootCmd.AddCommand(importCmd)
}

// addConfigCommand adds the config command
func (cli *CLI) addConfigCommand() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.executeShowConfig()
		},
	}
	cli.rootCmd.AddCommand(configCmd)
}

func (cli *CLI) executeCollections(ctx context.Context) error {
	const operation = "list collections"
	s, err := cli.openStore(operation)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	names, err := s.Collections(ctx)
	if err != nil {
		return WrapError(operation, err, CommonSuggestions.CheckDataDir)
	}

	return cli.outputResult(operation, names)
}

func (cli *CLI) executeShow(cmd *cobra.Command, collection string) error {
	const operation = "show collection"
	opts, err := listOptions(cmd)
	if err != nil {
		return err
	}

	s, err := cli.openStore(operation)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	page, err := s.List(cmd.Context(), collection, opts)
	if err != nil {
		return WrapError(operation, err, CommonSuggestions.CheckCollections)
	}
	return cli.outputResult(operation, page)
}

func (cli *CLI) executeExport(ctx context.Context, collections []string, output string) error {
	const operation = "export collections"
	format, err := cli.outputFormat(operation)
	if err != nil {
		return err
	}

	s, err := cli.openStore(operation)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	data, err := export.GenerateExportData(ctx, s, export.ExportOptions{
		Collections: collections,
		Format:      format,
	})
	if err != nil {
		return WrapError(operation, err, CommonSuggestions.CheckCollections)
	}

	if output == "" {
		output = data.ArchiveFilename
	}
	if err := export.CreateExportArchive(data, output); err != nil {
		return WrapError(operation, err, CommonSuggestions.CheckPerms)
	}

	abs, err := filepath.Abs(output)
	if err != nil {
		abs = output
	}
	cli.logger.Info("export written", "path", abs, "collections", len(data.Contents.Collections))
	fmt.Fprintf(cli.out, "Exported %d collections to %s\n", len(data.Contents.Collections), abs)
	return nil
}

func (cli *CLI) executeImport(ctx context.Context, path string, options imports.ImportOptions) error {
	const operation = "import collections"
	if _, err := cli.outputFormat(operation); err != nil {
		return err
	}

	s, err := cli.openStore(operation)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	result, err := imports.ImportFromPath(ctx, s, path, options)
	if err != nil {
		return WrapError(operation, err, "Check that the path is a directory or a .zip archive", CommonSuggestions.CheckCollections)
	}
	cli.logger.Info("import finished",
		"path", path,
		"imported", result.Summary.SuccessfulImports,
		"failed", result.Summary.FailedImports,
		"dry_run", options.DryRun)

	if err := cli.outputResult(operation, result); err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return &CLIError{
			Operation:   operation,
			Cause:       fmt.Sprintf("%d of %d collections were not imported", len(result.Failed), result.Summary.TotalCollections),
			Suggestions: []string{"Use --overwrite to replace existing collections"},
		}
	}
	return nil
}

// executeShowConfig prints the merged settings and the config file in use
func (cli *CLI) executeShowConfig() error {
	config := cli.viperInst.AllSettings()

	if configFile := cli.viperInst.ConfigFileUsed(); configFile != "" {
		config["_config_file"] = configFile
	}
	return cli.outputResult("show config", config)
}
