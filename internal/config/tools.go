// This file implements the detection of the external tools the harness drives.

package config

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// detectionTimeout bounds the whole tool detection pass.
const detectionTimeout = 10 * time.Second

// maxVersionSegments is the number of segments in a semantic version (major.minor.patch).
const maxVersionSegments = 3

// minValgrindVersion is the first release whose massif supports --stacks=yes
// together with --max-stackframe.
const minValgrindVersion = "3.13.0"

//nolint:gochecknoglobals // Compiled once
var genericVersionRe = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

// ToolStatus represents the installation status of an external tool.
//
//nolint:recvcheck // UnmarshalJSON requires pointer receiver per json.Unmarshaler interface
type ToolStatus int

const (
	// ToolStatusMissing indicates the tool is not installed.
	ToolStatusMissing ToolStatus = iota

	// ToolStatusInstalled indicates the tool is installed and meets version requirements.
	ToolStatusInstalled

	// ToolStatusOutdated indicates the tool is installed but below the minimum version.
	ToolStatusOutdated
)

// String returns a human-readable representation of the tool status.
func (s ToolStatus) String() string {
	switch s {
	case ToolStatusInstalled:
		return "installed"
	case ToolStatusMissing:
		return "missing"
	case ToolStatusOutdated:
		return "outdated"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for human-readable JSON output.
func (s ToolStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for parsing JSON status strings.
func (s *ToolStatus) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "installed":
		*s = ToolStatusInstalled
	case "outdated":
		*s = ToolStatusOutdated
	default:
		*s = ToolStatusMissing
	}
	return nil
}

// Tool represents an external tool the pipelines invoke.
type Tool struct {
	// Name is the tool identifier (e.g., "make", "valgrind").
	Name string `json:"name"`

	// Required indicates if every pipeline needs the tool.
	Required bool `json:"required"`

	// MinVersion is the minimum required version (semver format).
	MinVersion string `json:"min_version,omitempty"`

	// CurrentVersion is the detected installed version.
	CurrentVersion string `json:"current_version,omitempty"`

	// Status is the current installation status.
	Status ToolStatus `json:"status"`

	// InstallHint provides installation instructions for missing tools.
	InstallHint string `json:"install_hint"`
}

// ToolDetectionResult holds the results of detecting all tools.
type ToolDetectionResult struct {
	// Tools contains the detection result for each tool, in detection order.
	Tools []Tool `json:"tools"`

	// HasMissingRequired indicates if any required tools are missing or outdated.
	HasMissingRequired bool `json:"has_missing_required"`
}

// MissingRequiredTools returns the required tools that are missing or outdated.
func (r *ToolDetectionResult) MissingRequiredTools() []Tool {
	var missing []Tool
	for _, tool := range r.Tools {
		if tool.Required && tool.Status != ToolStatusInstalled {
			missing = append(missing, tool)
		}
	}
	return missing
}

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// LookPath searches for an executable named file in the PATH.
	LookPath(file string) (string, error)

	// Run executes a command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// DefaultCommandExecutor implements CommandExecutor using os/exec.
type DefaultCommandExecutor struct{}

// LookPath searches for an executable in the PATH.
func (e *DefaultCommandExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes a command and returns its output.
func (e *DefaultCommandExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput() //#nosec G204 -- tool names come from configuration
	return string(output), err
}

// toolConfig holds the configuration for detecting a specific tool.
type toolConfig struct {
	name        string
	command     string
	versionFlag string
	minVersion  string
	required    bool
	installHint string
}

// ToolDetector detects the installation status of the build toolchain
// and the memory profiler.
type ToolDetector struct {
	executor CommandExecutor
	tools    []toolConfig
}

// NewToolDetector creates a ToolDetector for the tools named in cfg.
func NewToolDetector(cfg *Config) *ToolDetector {
	return NewToolDetectorWithExecutor(cfg, &DefaultCommandExecutor{})
}

// NewToolDetectorWithExecutor creates a ToolDetector with a custom executor.
func NewToolDetectorWithExecutor(cfg *Config, executor CommandExecutor) *ToolDetector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ToolDetector{
		executor: executor,
		tools: []toolConfig{
			{
				name:        cfg.Build.Command,
				command:     cfg.Build.Command,
				versionFlag: "--version",
				required:    true,
				installHint: "Install GNU make from your system package manager",
			},
			{
				name:        "cc",
				command:     "cc",
				versionFlag: "--version",
				required:    true,
				installHint: "Install gcc or clang from your system package manager",
			},
			{
				name:        cfg.Profiler.Command,
				command:     cfg.Profiler.Command,
				versionFlag: "--version",
				minVersion:  minValgrindVersion,
				installHint: "Install valgrind; needed by bench --memory and by test unless --no-valgrind",
			},
		},
	}
}

// Detect checks all configured tools and returns their status.
func (d *ToolDetector) Detect(ctx context.Context) (*ToolDetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detectCtx, cancel := context.WithTimeout(ctx, detectionTimeout)
	defer cancel()

	result := &ToolDetectionResult{Tools: make([]Tool, len(d.tools))}

	g, gCtx := errgroup.WithContext(detectCtx)
	for i, cfg := range d.tools {
		g.Go(func() error {
			result.Tools[i] = d.detectTool(gCtx, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to detect tools: %w", err)
	}

	result.HasMissingRequired = len(result.MissingRequiredTools()) > 0
	return result, nil
}

// detectTool detects a single tool's status.
func (d *ToolDetector) detectTool(ctx context.Context, cfg toolConfig) Tool {
	tool := Tool{
		Name:        cfg.name,
		Required:    cfg.required,
		MinVersion:  cfg.minVersion,
		InstallHint: cfg.installHint,
		Status:      ToolStatusMissing,
	}

	if _, err := d.executor.LookPath(cfg.command); err != nil {
		return tool
	}

	tool.Status = ToolStatusInstalled
	tool.CurrentVersion = "unknown"

	output, err := d.executor.Run(ctx, cfg.command, cfg.versionFlag)
	if err != nil {
		return tool
	}
	version := parseGenericVersion(output)
	if version == "" {
		return tool
	}
	tool.CurrentVersion = version

	if cfg.minVersion != "" && CompareVersions(version, cfg.minVersion) < 0 {
		tool.Status = ToolStatusOutdated
	}
	return tool
}

// parseGenericVersion extracts the first version number from output.
func parseGenericVersion(output string) string {
	if matches := genericVersionRe.FindStringSubmatch(output); len(matches) >= 2 {
		return matches[1]
	}
	return ""
}

// CompareVersions compares two semantic versions.
// Returns:
//
//	-1 if current < required
//	 0 if current == required
//	 1 if current > required
func CompareVersions(current, required string) int {
	currentParts := parseVersionParts(strings.TrimPrefix(current, "v"))
	requiredParts := parseVersionParts(strings.TrimPrefix(required, "v"))

	for i := 0; i < maxVersionSegments; i++ {
		if currentParts[i] < requiredParts[i] {
			return -1
		}
		if currentParts[i] > requiredParts[i] {
			return 1
		}
	}
	return 0
}

// parseVersionParts parses a version string into [major, minor, patch].
func parseVersionParts(version string) [maxVersionSegments]int {
	var parts [maxVersionSegments]int
	segments := strings.Split(version, ".")

	for i := 0; i < len(segments) && i < maxVersionSegments; i++ {
		numStr := segments[i]
		for j, c := range numStr {
			if c < '0' || c > '9' {
				numStr = numStr[:j]
				break
			}
		}
		if numStr != "" {
			parts[i], _ = strconv.Atoi(numStr)
		}
	}
	return parts
}

// FormatMissingToolsError creates a formatted error message for missing tools.
func FormatMissingToolsError(missing []Tool) string {
	if len(missing) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Missing required tools:\n\n")
	for _, tool := range missing {
		status := "missing"
		if tool.Status == ToolStatusOutdated {
			status = fmt.Sprintf("outdated (have %s, need %s)", tool.CurrentVersion, tool.MinVersion)
		}
		fmt.Fprintf(&sb, "  • %s: %s\n", tool.Name, status)
		fmt.Fprintf(&sb, "    Install: %s\n\n", tool.InstallHint)
	}
	return sb.String()
}
