package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-flow-graph/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a gfg configuration interactively",
	Long: `Guides you through setting up gfg step by step and writes the result to
the global or project config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

func validateSegment(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("enter a single directory name")
	}
	return nil
}

func runInit() error {
	cfg := config.DefaultConfig()

	// === SECTION 1: Layout ===
	girDir := cfg.GIRDir
	semanticDir := cfg.SemanticDir
	cfgExt := cfg.CFGExt
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Unit directory").
				Description("Directory name holding unit files").
				Placeholder(cfg.GIRDir).
				Validate(validateSegment).
				Value(&girDir),
			huh.NewInput().
				Title("Output directory").
				Description("Replaces the unit directory in edge file paths").
				Placeholder(cfg.SemanticDir).
				Validate(validateSegment).
				Value(&semanticDir),
			huh.NewInput().
				Title("Edge file extension").
				Placeholder(cfg.CFGExt).
				Value(&cfgExt),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Build behavior ===
	workers := strconv.Itoa(cfg.Workers)
	onError := string(cfg.OnError)
	doWhileSelfLoop := cfg.Compat.DoWhileSelfLoop
	forSelfLoop := cfg.Compat.ForConditionSelfLoop
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Workers").
				Description("Units processed concurrently").
				Validate(validatePositiveInt).
				Value(&workers),
			huh.NewSelect[string]().
				Title("On method failure").
				Options(
					huh.NewOption("Skip the method and continue", string(config.OnErrorSkip)),
					huh.NewOption("Abort the build", string(config.OnErrorAbort)),
				).
				Value(&onError),
			huh.NewConfirm().
				Title("Legacy do-while self edge").
				Description("Add a LOOP_FALSE edge from each do-while statement to itself?").
				Affirmative("Yes").
				Negative("No").
				Value(&doWhileSelfLoop),
			huh.NewConfirm().
				Title("Legacy for self edge").
				Description("Keep the FOR_CONDITION self edge of a for loop with no init or condition?").
				Affirmative("Yes").
				Negative("No").
				Value(&forSelfLoop),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Registry ===
	registryPath := ""
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Registry directory (optional, press Enter to skip)").
				Description("BadgerDB directory mapping unit files to edge files").
				Placeholder("optional").
				Value(&registryPath),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 4: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Project (./.gfg/config.yaml)", "project"),
					huh.NewOption("Global (~/.gfg/config.yaml)", "global"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigFilePath()
	if saveLocationChoice == "global" {
		configPath = config.GlobalConfigFilePath()
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	cfg.GIRDir = strings.TrimSpace(girDir)
	cfg.SemanticDir = strings.TrimSpace(semanticDir)
	cfg.CFGExt = strings.TrimSpace(cfgExt)
	cfg.Workers, _ = strconv.Atoi(strings.TrimSpace(workers))
	cfg.OnError = config.ErrorPolicy(onError)
	cfg.Compat.DoWhileSelfLoop = doWhileSelfLoop
	cfg.Compat.ForConditionSelfLoop = forSelfLoop
	cfg.RegistryPath = strings.TrimSpace(registryPath)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Layout: %s -> %s (*%s)\n", cfg.GIRDir, cfg.SemanticDir, cfg.CFGExt)
	fmt.Printf("Workers: %d\n", cfg.Workers)
	fmt.Printf("On error: %s\n", cfg.OnError)
	fmt.Printf("Do-while self edge: %v\n", cfg.Compat.DoWhileSelfLoop)
	fmt.Printf("For self edge: %v\n", cfg.Compat.ForConditionSelfLoop)
	if cfg.RegistryPath != "" {
		fmt.Printf("Registry: %s\n", cfg.RegistryPath)
	}

	if err := cfg.Save(configPath); err != nil {
		return err
	}
	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return nil
}
