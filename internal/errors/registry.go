package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Version Errors (E100-E109)
	// ============================================

	"E100": {
		Category:   CategoryVersion,
		Message:    "Version could not be determined",
		Suggestion: "Pass an explicit version such as 'v1.0.0' or 'dev'",
	},

	// ============================================
	// Build Errors (E110-E119)
	// ============================================

	"E110": {
		Category:   CategoryBuild,
		Message:    "Invalid distribution type",
		Suggestion: "Use one of: local, ankiweb, all",
	},
	"E111": {
		Category: CategoryBuild,
		Message:  "Staging area unavailable",
	},
	"E112": {
		Category:   CategoryBuild,
		Message:    "Snapshot of the source tree failed",
		Suggestion: "Check that the version exists in the repository ('git tag', 'git log')",
	},
	"E113": {
		Category: CategoryBuild,
		Message:  "Could not copy build assets",
	},
	"E114": {
		Category:   CategoryBuild,
		Message:    "UI compilation failed",
		Suggestion: "Make sure the UI compiler (pyuic6) is installed and on PATH",
	},
	"E115": {
		Category: CategoryBuild,
		Message:  "Could not write manifest",
	},
	"E116": {
		Category: CategoryBuild,
		Message:  "Packaging failed",
	},
	"E117": {
		Category: CategoryBuild,
		Message:  "Could not remove staging area",
	},
	"E118": {
		Category:   CategoryBuild,
		Message:    "Build phase called out of order",
		Suggestion: "Run 'aadt create-dist' before building or packaging a distribution",
	},

	// ============================================
	// Config Errors (E120-E129)
	// ============================================

	"E120": {
		Category:   CategoryConfig,
		Message:    "Could not read config file",
		Suggestion: "Create addon.json in the project root",
	},
	"E121": {
		Category:   CategoryConfig,
		Message:    "Invalid JSON",
		Suggestion: "Check that addon.json is valid JSON",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Config validation failed",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Could not write to config file",
	},

	// ============================================
	// Publish Errors (E130-E139)
	// ============================================

	"E130": {
		Category:   CategoryPublish,
		Message:    "Publish failed",
		Suggestion: "Set publish.bucket in addon.json and export AWS credentials",
	},

	// ============================================
	// CLI Errors (E140-E149)
	// ============================================

	"E140": {
		Category:   CategoryCLI,
		Message:    "Could not find 'src' or 'addon.json'",
		Suggestion: "Run aadt from the root of an add-on project",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Failed to initialize builder",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
