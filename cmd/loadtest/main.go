package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	config = &LoadTestConfig{
		BaseURL:         "http://localhost:8080",
		ConcurrentUsers: 100,
		Duration:        60 * time.Second,
		RampUp:          10 * time.Second,
		DeclineRate:     0.1,
	}
	profile    string
	outputFile string
)

var rootCmd = &cobra.Command{
	Use:          "loadtest",
	Short:        "Drive shoppers through cart, checkout and payment against a running cartd",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyProfile(config, profile); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		metrics := NewLoadTester(config).Run(ctx)
		metrics.PrintReport()

		if outputFile != "" {
			if err := metrics.SaveToFile(outputFile); err != nil {
				return fmt.Errorf("save results: %w", err)
			}
			fmt.Printf("Results saved to %s\n", outputFile)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&config.BaseURL, "url", config.BaseURL, "Base URL of the service")
	flags.IntVar(&config.ConcurrentUsers, "users", config.ConcurrentUsers, "Concurrent shoppers")
	flags.DurationVar(&config.Duration, "duration", config.Duration, "Test duration")
	flags.DurationVar(&config.RampUp, "ramp-up", config.RampUp, "Time to start all shoppers")
	flags.Float64Var(&config.DeclineRate, "decline-rate", config.DeclineRate, "Share of payments the simulated provider declines")
	flags.StringVar(&profile, "profile", "", "Preset load: light, heavy or stress")
	flags.StringVarP(&outputFile, "output", "o", "", "Write the JSON report to this file")
}

func applyProfile(cfg *LoadTestConfig, name string) error {
	switch name {
	case "":
	case "light":
		cfg.ConcurrentUsers = 50
		cfg.Duration = 30 * time.Second
	case "heavy":
		cfg.ConcurrentUsers = 500
		cfg.Duration = 5 * time.Minute
	case "stress":
		cfg.ConcurrentUsers = 1000
		cfg.Duration = 10 * time.Minute
	default:
		return fmt.Errorf("unknown profile %q", name)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
