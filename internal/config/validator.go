package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextScan - codeatlas scan requires a workspace and graph store
	ValidationContextScan ValidationContext = "scan"
	// ValidationContextQuery - codeatlas query requires graph store and indexes
	ValidationContextQuery ValidationContext = "query"
	// ValidationContextConfigure - configure has no hard requirements
	ValidationContextConfigure ValidationContext = "configure"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ❌ %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠️  %s\n", warn))
		}
	}

	return sb.String()
}

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextScan:
		c.validateWorkspace(result)
		c.validateGraph(result)
		c.validatePipeline(result)
	case ValidationContextQuery:
		c.validateGraph(result)
		c.validateRetrieval(result)
	case ValidationContextConfigure:
		// No hard requirements
	case ValidationContextAll:
		c.validateWorkspace(result)
		c.validateGraph(result)
		c.validatePipeline(result)
		c.validateRetrieval(result)
		c.validateStorage(result)
	}

	return result
}

func (c *Config) validateWorkspace(result *ValidationResult) {
	if c.Workspace == "" {
		result.AddError("workspace path is required")
	}
}

func (c *Config) validateGraph(result *ValidationResult) {
	if c.Graph.URI == "" {
		result.AddError("graph store URI is required (NEO4J_URI)")
		return
	}

	u, err := url.Parse(c.Graph.URI)
	if err != nil {
		result.AddError("invalid graph store URI %q: %v", c.Graph.URI, err)
		return
	}

	switch u.Scheme {
	case "bolt", "bolt+s", "neo4j", "neo4j+s":
		// OK
	default:
		result.AddError("graph store URI must use bolt:// or neo4j:// scheme, got %q", u.Scheme)
	}

	if c.Graph.Username == "" {
		result.AddWarning("graph store username is empty")
	}
}

func (c *Config) validatePipeline(result *ValidationResult) {
	if c.Pipeline.Workers < 1 {
		result.AddError("pipeline workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.Workers > 64 {
		result.AddWarning("pipeline workers %d is unusually high", c.Pipeline.Workers)
	}
}

func (c *Config) validateRetrieval(result *ValidationResult) {
	if c.Retrieval.MaxResults < 1 {
		result.AddError("retrieval max_results must be at least 1, got %d", c.Retrieval.MaxResults)
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		result.AddError("retrieval min_score must be in [0, 1], got %v", c.Retrieval.MinScore)
	}
	for source, w := range c.Retrieval.Weights {
		if w < 0 || w > 1 {
			result.AddError("retrieval weight for %q must be in [0, 1], got %v", source, w)
		}
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.LocalPath == "" {
			result.AddError("storage local_path is required for sqlite storage")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			result.AddError("storage postgres_dsn is required for postgres storage")
		}
	case "":
		result.AddWarning("storage type not set, defaulting to sqlite")
	default:
		result.AddError("unknown storage type %q (expected sqlite or postgres)", c.Storage.Type)
	}
}
