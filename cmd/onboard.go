package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/browserpilot/gateway/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactively configure a provider API key and write config.json5",
		Run: func(cmd *cobra.Command, args []string) {
			runOnboard()
		},
	}
}

func runOnboard() {
	cfg := config.Default()

	var provider, apiKey, portStr string
	portStr = fmt.Sprintf("%d", cfg.Gateway.Port)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which LLM provider will the gateway use?").
				Options(
					huh.NewOption("Anthropic (Claude)", "anthropic"),
					huh.NewOption("OpenAI", "openai"),
					huh.NewOption("Gemini", "gemini"),
				).
				Value(&provider),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("an API key is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Gateway port").
				Value(&portStr),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "onboard cancelled:", err)
		os.Exit(1)
	}

	applyProviderKey(cfg, provider, apiKey)
	if port, err := parsePort(portStr); err == nil {
		cfg.Gateway.Port = port
	}

	path := resolveConfigPath()
	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "failed to write config:", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s. Start the gateway with: browserpilot-gateway\n", path)
}

func applyProviderKey(cfg *config.Config, provider, apiKey string) {
	switch provider {
	case "anthropic":
		cfg.Providers.Anthropic.APIKey = apiKey
	case "openai":
		cfg.Providers.OpenAI.APIKey = apiKey
	case "gemini":
		cfg.Providers.Gemini.APIKey = apiKey
	}
}

func parsePort(s string) (int, error) {
	var port int
	_, err := fmt.Sscanf(s, "%d", &port)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}
