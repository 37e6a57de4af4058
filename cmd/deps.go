package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/FluidXR/droidprep/internal/config"
)

type dependency struct {
	name       string
	binary     string
	installCmd map[string]string // GOOS -> install command
}

// requiredDeps lists the host tools the effective config needs. sudo is
// only needed to launch the simple-rt helper.
func requiredDeps(cfg *config.Config) []dependency {
	adbPath := cfg.ADBPath
	if adbPath == "" {
		adbPath = "adb"
	}
	deps := []dependency{{
		name:   "ADB (Android Debug Bridge)",
		binary: adbPath,
		installCmd: map[string]string{
			"darwin":  "brew install android-platform-tools",
			"linux":   "sudo apt install android-tools-adb",
			"windows": "winget install Google.PlatformTools",
		},
	}}
	if cfg.SimpleRT != "" && runtime.GOOS == "linux" {
		deps = append(deps, dependency{name: "sudo", binary: "sudo"})
	}
	return deps
}

// checkDeps verifies that required external tools are installed and
// offers to install missing ones.
func checkDeps() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var missing []dependency
	for _, dep := range requiredDeps(cfg) {
		if _, err := exec.LookPath(dep.binary); err != nil {
			missing = append(missing, dep)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	fmt.Println("droidprep requires the following tools that are not installed:")
	for _, dep := range missing {
		fmt.Printf("  - %s (%s)\n", dep.name, dep.binary)
	}
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for _, dep := range missing {
		cmd, ok := dep.installCmd[runtime.GOOS]
		if !ok {
			fmt.Printf("Please install %s manually and try again.\n", dep.name)
			continue
		}
		fmt.Printf("Install %s with: %s\n", dep.name, cmd)
		fmt.Print("Run now? [Y/n] ")
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "" && answer != "y" && answer != "yes" {
			fmt.Printf("Skipped. Install %s manually before using droidprep.\n", dep.name)
			continue
		}

		parts := strings.Fields(cmd)
		install := exec.Command(parts[0], parts[1:]...)
		install.Stdout = os.Stdout
		install.Stderr = os.Stderr
		install.Stdin = os.Stdin
		if err := install.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to install %s: %v\n", dep.name, err)
		}
	}

	for _, dep := range missing {
		if _, err := exec.LookPath(dep.binary); err != nil {
			return fmt.Errorf("%s is required but not installed", dep.binary)
		}
	}
	return nil
}
