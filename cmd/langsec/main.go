// Command langsec is a minimal CLI demonstration of the guard: validate a
// SQL file against a YAML security schema file and print the verdict. It
// deliberately stays on the standard library's flag/log packages, the same
// way ekaya-engine's own main.go bootstraps without a CLI framework.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/langsec-ai/langsec/pkg/config"
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/langsec"
	"github.com/langsec-ai/langsec/pkg/schema"
)

func main() {
	schemaPath := flag.String("schema", "", "path to a YAML SecuritySchema document")
	queryPath := flag.String("query", "", "path to a file containing the SQL query to validate")
	configPath := flag.String("config", "langsec.yaml", "path to façade configuration (optional)")
	flag.Parse()

	if *schemaPath == "" || *queryPath == "" {
		fmt.Fprintln(os.Stderr, "usage: langsec -schema schema.yaml -query query.sql [-config langsec.yaml]")
		os.Exit(2)
	}

	schemaData, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("failed to read schema file: %v", err)
	}
	s, err := schema.LoadYAML(schemaData)
	if err != nil {
		log.Fatalf("failed to load schema: %v", err)
	}

	queryData, err := os.ReadFile(*queryPath)
	if err != nil {
		log.Fatalf("failed to read query file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.LogQueries {
		logger, err = zap.NewProduction()
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer logger.Sync()
	}

	guard := langsec.New(s, cfg, logger)
	if err := guard.Validate(string(queryData)); err != nil {
		d, ok := err.(*diagnostic.Diagnostic)
		if !ok {
			log.Fatalf("validation error: %v", err)
		}
		fmt.Printf("REJECTED: %s\n", d.Error())
		os.Exit(1)
	}
	fmt.Println("OK")
}
