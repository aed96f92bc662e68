// Package prompts provides the embedded prompt library for job field
// extraction: per-platform guidance, the content template and few-shot
// examples. Files are JSON and embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

const (
	// ExtractionFile holds the content template and platform guidance.
	ExtractionFile = "extraction.json"
	// ExamplesFile holds few-shot examples keyed by platform.
	ExamplesFile = "examples.json"

	// GenericPlatform is the fallback key for unknown platforms.
	GenericPlatform = "generic"
)

// Example is one few-shot pair: page text and the expected JSON output.
type Example struct {
	Page   string          `json:"page"`
	Output json.RawMessage `json:"output"`
}

// cache stores parsed prompt files to avoid repeated JSON parsing
var (
	cache    = make(map[string]map[string]string)
	examples map[string][]Example
	cacheMu  sync.RWMutex
)

// Get retrieves a prompt by filename and key.
// The filename should not include the path (e.g., "extraction.json").
// Returns an error if the file or key is not found.
func Get(filename, key string) (string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}

	return prompt, nil
}

// MustGet retrieves a prompt by filename and key, panicking if not found.
// Use this for prompts that are required at initialization time.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format replaces template placeholders in the form {{.Key}} with values from data.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// Guidance returns the platform-specific extraction guidance, falling back
// to the generic guidance for platforms without an entry.
func Guidance(platform string) string {
	if g, err := Get(ExtractionFile, "platform:"+platform); err == nil {
		return g
	}
	return MustGet(ExtractionFile, "platform:"+GenericPlatform)
}

// Examples returns the few-shot examples for a platform, falling back to the
// generic set.
func Examples(platform string) ([]Example, error) {
	all, err := loadExamples()
	if err != nil {
		return nil, err
	}
	if ex, ok := all[platform]; ok && len(ex) > 0 {
		return ex, nil
	}
	return all[GenericPlatform], nil
}

// loadFile loads and caches a prompt file.
func loadFile(filename string) (map[string]string, error) {
	// Check cache first
	cacheMu.RLock()
	if prompts, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return prompts, nil
	}
	cacheMu.RUnlock()

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = prompts
	cacheMu.Unlock()

	return prompts, nil
}

func loadExamples() (map[string][]Example, error) {
	cacheMu.RLock()
	if examples != nil {
		defer cacheMu.RUnlock()
		return examples, nil
	}
	cacheMu.RUnlock()

	data, err := promptFiles.ReadFile(ExamplesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", ExamplesFile, err)
	}

	var parsed map[string][]Example
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", ExamplesFile, err)
	}

	cacheMu.Lock()
	examples = parsed
	cacheMu.Unlock()

	return parsed, nil
}

// ClearCache clears the prompt cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	examples = nil
	cacheMu.Unlock()
}

// List returns all available prompt keys in a file, sorted.
func List(filename string) ([]string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
