package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/browserpilot/gateway/internal/config"
	"github.com/browserpilot/gateway/internal/memory"
)

// label right-pads name to a fixed column width, measured in display
// columns rather than bytes so the table stays aligned if a field name
// ever contains a wide rune.
func label(name string, width int) string {
	return name + runewidth.FillRight("", width-runewidth.StringWidth(name))
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and provider health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("browserpilot-gateway doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, defaults + env will be used)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Providers:")
	checkProvider("Anthropic", cfg.Providers.Anthropic.APIKey)
	checkProvider("OpenAI", cfg.Providers.OpenAI.APIKey)
	checkProvider("Gemini", cfg.Providers.Gemini.APIKey)

	fmt.Println()
	fmt.Println("  Gateway:")
	fmt.Printf("    %s %s:%d\n", label("Listen:", 12), cfg.Gateway.Host, cfg.Gateway.Port)

	fmt.Println()
	fmt.Println("  Memory:")
	if !cfg.Memory.Enabled {
		fmt.Println("    disabled")
	} else {
		checkMemory(cfg)
	}
}

func checkProvider(name, apiKey string) {
	if apiKey == "" {
		fmt.Printf("    %s NOT CONFIGURED\n", label(name+":", 12))
		return
	}
	masked := apiKey
	if len(masked) > 8 {
		masked = masked[:4] + "..." + masked[len(masked)-4:]
	}
	fmt.Printf("    %s configured (%s)\n", label(name+":", 12), masked)
}

func checkMemory(cfg *config.Config) {
	path := config.ExpandHome(cfg.Memory.Path)
	store, err := memory.Open(path)
	if err != nil {
		fmt.Printf("    %s OPEN FAILED (%s)\n", label("Store:", 12), err)
		return
	}
	defer store.Close()
	fmt.Printf("    %s %s (OK)\n", label("Store:", 12), path)
}
