// Command linkmlvalidate compiles a LinkML schema and validates JSON or
// YAML instance documents against one of its classes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/linkml-go/linkml"
)

var (
	verbose           bool
	className         string
	strictParse       bool
	checkPermissibles bool
	allowAdditional   bool
	collection        bool
	cacheSize         int
)

var rootCmd = &cobra.Command{
	Use:   "linkmlvalidate SCHEMA DATA",
	Short: "Validate instance data against a LinkML schema",
	Args:  cobra.ExactArgs(2),
	RunE:  runValidate,
}

func init() {
	rootCmd.Flags().StringVar(&className, "class", "", "target class (defaults to @type or the schema's tree_root class)")
	rootCmd.Flags().BoolVar(&strictParse, "strict", false, "treat unknown schema fields as errors")
	rootCmd.Flags().BoolVar(&checkPermissibles, "check-permissibles", true, "enforce enum permissible_values")
	rootCmd.Flags().BoolVar(&allowAdditional, "allow-additional-properties", false, "allow properties not named in the class")
	rootCmd.Flags().BoolVar(&collection, "collection", false, "treat DATA as a JSON/YAML array, validating as a collection")
	rootCmd.Flags().IntVar(&cacheSize, "cache-size", 256, "compiled-validator cache size")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger, err := linkml.NewLogger(verbose)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	schemaPath, dataPath := args[0], args[1]

	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	schema, err := linkml.Parse(schemaBytes, linkml.ParserOptions{SourceFile: schemaPath, Strict: strictParse})
	if err != nil {
		return fmt.Errorf("parsing schema: %w", err)
	}

	resolver := linkml.NewImportResolver(".", schema.Settings.Imports, nil)
	schema, err = resolver.Resolve(schema)
	if err != nil {
		return fmt.Errorf("resolving imports: %w", err)
	}

	compiler := linkml.NewCompiler(cacheSize).SetLogger(logger)
	engine := linkml.NewValidationEngine(schema, compiler)

	dataBytes, err := os.ReadFile(dataPath)
	if err != nil {
		return fmt.Errorf("reading data: %w", err)
	}

	opts := linkml.ValidationOptions{
		CheckPermissibles:         checkPermissibles,
		AllowAdditionalProperties: allowAdditional,
	}

	ctx := context.Background()
	var report *linkml.ValidationReport

	if collection {
		var values []any
		if err := yaml.Unmarshal(dataBytes, &values); err != nil {
			return fmt.Errorf("parsing data: %w", err)
		}
		if className == "" {
			return fmt.Errorf("--class is required with --collection")
		}
		report, err = engine.ValidateCollection(ctx, values, className, opts)
	} else {
		var value any
		if err := yaml.Unmarshal(dataBytes, &value); err != nil {
			return fmt.Errorf("parsing data: %w", err)
		}
		if className != "" {
			report, err = engine.ValidateAsClass(ctx, value, className, opts)
		} else {
			report, err = engine.Validate(ctx, value, opts)
		}
	}
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	fmt.Println(string(out))

	if !report.Valid {
		os.Exit(1)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
