// Command extract runs one document extraction from the command line and prints the result.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"freightx/internal/app"
	"freightx/internal/billexport"
	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/freight"
	"freightx/internal/genconfig"
	"freightx/internal/logging"
	"freightx/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "extract:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		file       = flag.String("file", "", "document to extract (required)")
		providerID = flag.String("provider", "", "provider id (default from FREIGHTX_EXTRACT_DEFAULT_PROVIDER)")
		rawConfig  = flag.String("config", freight.DefaultConfig, "generation config as a JSON object")
		systemFile = flag.String("system", "", "file holding the system prompt (default: freight table prompt)")
		userFile   = flag.String("user", "", "file holding the user prompt (default: freight table prompt)")
		validate   = flag.Bool("validate", false, "check the result against the bill JSON schema")
		pretty     = flag.Bool("json", false, "print the full result envelope as JSON")
		exportPath = flag.String("export", "", "write the validated bill to a .csv or .xlsx file (implies -validate)")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return errors.New("-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Keep stdout clean for the result.
	cfg.Log.Format = "json"
	if cfg.Log.Level == "debug" {
		cfg.Log.Level = "warn"
	}
	logger := logging.New(cfg.Log)
	defer func() { _ = logger.Sync() }()

	content, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	if limit := cfg.Extract.MaxFileSizeBytes(); limit > 0 && int64(len(content)) > limit {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrDocumentTooLarge, *file, len(content), limit)
	}

	system, err := promptOr(*systemFile, freight.SystemPrompt)
	if err != nil {
		return err
	}
	user, err := promptOr(*userFile, freight.UserPrompt)
	if err != nil {
		return err
	}

	genCfg, err := genconfig.Parse([]byte(*rawConfig))
	if err != nil {
		return err
	}

	a := app.New(cfg, nil, logger)
	result, err := a.Extraction.Extract(context.Background(), service.ExtractionInput{
		Document: domain.Document{
			Filename: filepath.Base(*file),
			Content:  content,
		},
		SystemInstruction: system,
		UserInstruction:   user,
		Provider:          domain.ProviderID(*providerID),
		Config:            genCfg,
	})
	if err != nil {
		return err
	}

	if *pretty {
		out, err := json.MarshalIndent(map[string]any{
			"result":      result.Text,
			"provider":    result.Provider,
			"model":       result.Model,
			"duration_ms": result.Duration.Milliseconds(),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Println(result.Text)
	}

	if !*validate && *exportPath == "" {
		return nil
	}
	bill, err := freight.ParseResult(result.Text)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "valid bill: %d freight items, %d containers\n",
		len(bill.FreightRateItem), len(bill.ContainerDetail))

	if *exportPath != "" {
		if err := export(*exportPath, bill); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *exportPath)
	}
	return nil
}

func export(path string, bill *freight.BillInfo) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		data, err := billexport.XLSX(bill)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	case ".csv":
		var buf bytes.Buffer
		if err := billexport.WriteCSV(&buf, bill); err != nil {
			return err
		}
		return os.WriteFile(path, buf.Bytes(), 0o644)
	default:
		return fmt.Errorf("unsupported export format %q; use .csv or .xlsx", filepath.Ext(path))
	}
}

func promptOr(path, def string) (string, error) {
	if path == "" {
		return def, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt %s: %w", path, err)
	}
	return string(b), nil
}
