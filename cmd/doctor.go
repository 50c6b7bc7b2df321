package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/skymarchbot/skymarch/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("skymarch doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults + env)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Credentials:")
	checkSecret("Bluesky handle", cfg.Bluesky.Handle)
	checkSecret("Bluesky app password", cfg.Bluesky.Password)
	checkSecret("GenAI API key", cfg.GenAI.APIKey)
	checkSecret("Developer DID", cfg.Developer.DID)
	checkSecret("Developer handle", cfg.Developer.Handle)

	fmt.Println()
	fmt.Println("  Pipeline:")
	fmt.Printf("    %-22s %d\n", "Queue capacity:", cfg.Pipeline.QueueCapacity)
	fmt.Printf("    %-22s %d\n", "Dedup capacity:", cfg.Pipeline.DedupCapacity)
	fmt.Printf("    %-22s %d\n", "Context depth:", cfg.Pipeline.ContextDepth)
	fmt.Printf("    %-22s %d\n", "Conversation cap:", cfg.Pipeline.ConversationCap)
	fmt.Printf("    %-22s %s\n", "Firehose endpoint:", cfg.Firehose.Endpoint)
	fmt.Printf("    %-22s %s\n", "Text model:", cfg.GenAI.TextModel)
	fmt.Printf("    %-22s %s\n", "Image model:", cfg.GenAI.ImageModel)
	fmt.Printf("    %-22s %s\n", "Video model:", cfg.GenAI.VideoModel)
	fmt.Printf("    %-22s %v\n", "Autoposting:", cfg.Pipeline.AutoPostEnabled)

	if err := cfg.Validate(); err != nil {
		fmt.Println()
		fmt.Printf("  NOT READY: %s\n", err)
		return
	}
	fmt.Println()
	fmt.Println("  Ready to run.")
}

func checkSecret(name, value string) {
	status := "MISSING"
	if value != "" {
		status = "set"
	}
	fmt.Printf("    %-22s %s\n", name+":", status)
}
