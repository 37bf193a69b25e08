package main

import (
	"fmt"
	"os"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/adapters"
	"github.com/reeveops/reeve/internal/logger"
)

func main() {
	log, err := logger.New(logger.Options{Level: "info", HumanReadable: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	registry := adapter.NewRegistry(log)
	if err := adapters.Register(registry); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register adapters: %v\n", err)
		os.Exit(1)
	}

	if err := registry.InitializeAdapters(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize adapters: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(registry).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
