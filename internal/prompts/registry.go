package prompts

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/types"

	"gopkg.in/yaml.v3"
)

// Template is the resolved prompt pair of one tool. System is empty when
// system prompts are disabled for the tool.
type Template struct {
	System string
	User   string
}

// Source describes where a prompt came from
type Source string

const (
	SourceFile    Source = "file"
	SourceBundle  Source = "bundle"
	SourceConfig  Source = "config"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

type resolvedTemplate struct {
	template     Template
	userSource   Source
	systemSource Source
}

type toolSettings struct {
	prompts   config.ToolPromptConfig
	useSystem bool
}

// bundleEntry is one tool's entry in the YAML prompt bundle
type bundleEntry struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Registry resolves and renders the prompt templates of every tool.
// It is safe for concurrent use; Reload swaps all templates at once.
type Registry struct {
	mu         sync.RWMutex
	templates  map[types.ToolType]resolvedTemplate
	settings   map[types.ToolType]toolSettings
	bundlePath string
	logger     *errors.Logger
}

// NewRegistry builds a registry from the AI configuration and loads every template
func NewRegistry(cfg *config.Config, logger *errors.Logger) (*Registry, error) {
	settings := make(map[types.ToolType]toolSettings, len(types.AllToolTypes))
	for tool, toolCfg := range cfg.GetToolConfigs() {
		settings[tool] = toolSettings{
			prompts:   toolCfg.Prompts,
			useSystem: toolCfg.UseSystemPrompts != nil && *toolCfg.UseSystemPrompts,
		}
	}

	r := &Registry{
		settings:   settings,
		bundlePath: cfg.AI.PromptBundle,
		logger:     logger,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewDefaultRegistry returns a registry holding only the built-in templates
func NewDefaultRegistry() *Registry {
	r := &Registry{
		templates: make(map[types.ToolType]resolvedTemplate, len(types.AllToolTypes)),
		settings:  make(map[types.ToolType]toolSettings),
		logger:    errors.NewNopLogger(),
	}
	for _, tool := range types.AllToolTypes {
		r.templates[tool] = resolvedTemplate{
			template:     Template{User: DefaultUserPrompts[tool]},
			userSource:   SourceDefault,
			systemSource: SourceNone,
		}
	}
	return r
}

// Reload re-reads prompt files and the bundle. On error the previously
// loaded templates stay in place.
func (r *Registry) Reload() error {
	bundle, err := loadBundle(r.bundlePath)
	if err != nil {
		return err
	}

	next := make(map[types.ToolType]resolvedTemplate, len(types.AllToolTypes))
	for _, tool := range types.AllToolTypes {
		resolved, err := resolveTemplate(tool, r.settings[tool], bundle[tool])
		if err != nil {
			return err
		}
		next[tool] = resolved
	}

	r.mu.Lock()
	r.templates = next
	r.mu.Unlock()

	r.logSources(next)
	return nil
}

func (r *Registry) logSources(templates map[types.ToolType]resolvedTemplate) {
	if r.logger == nil {
		return
	}
	for _, tool := range types.AllToolTypes {
		t := templates[tool]
		r.logger.Debug("Prompt template resolved",
			"tool", tool,
			"user_source", t.userSource,
			"system_source", t.systemSource)
	}
}

// Template returns the resolved templates of a tool
func (r *Registry) Template(tool types.ToolType) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[tool]
	return t.template, ok
}

// Sources reports the origin of every tool's user and system prompt
func (r *Registry) Sources() map[string]map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]string, len(r.templates))
	for tool, t := range r.templates {
		out[tool.String()] = map[string]string{
			"user":   string(t.userSource),
			"system": string(t.systemSource),
		}
	}
	return out
}

// Render fills the tool's templates with the request fields. The job
// information placeholder falls back to userInput when jobDescription is empty.
func (r *Registry) Render(tool types.ToolType, userInput, jobDescription string) (system, user string, err error) {
	t, ok := r.Template(tool)
	if !ok {
		return "", "", fmt.Errorf("no prompt template for tool %q", tool)
	}

	jobInfo := jobDescription
	if jobInfo == "" {
		jobInfo = userInput
	}

	user = render(t.User, userInput, jobDescription, jobInfo)
	system = render(t.System, userInput, jobDescription, jobInfo)
	return system, user, nil
}

// render formats text with the request fields. Text without placeholders is
// returned as is, apart from %% escapes.
func render(text string, args ...any) string {
	if !strings.Contains(text, "%[") {
		return strings.ReplaceAll(text, "%%", "%")
	}
	return fmt.Sprintf(text, args...)
}

// WatchedFiles lists every prompt file and the bundle, for hot reload
func (r *Registry) WatchedFiles() []string {
	var files []string
	for _, tool := range types.AllToolTypes {
		s := r.settings[tool]
		if s.prompts.UserFile != "" {
			files = append(files, s.prompts.UserFile)
		}
		if s.prompts.SystemFile != "" {
			files = append(files, s.prompts.SystemFile)
		}
	}
	if r.bundlePath != "" {
		files = append(files, r.bundlePath)
	}
	return files
}

type candidate struct {
	source Source
	text   string
}

// resolvePrompt returns the first non-empty candidate
func resolvePrompt(candidates ...candidate) candidate {
	for _, c := range candidates {
		if strings.TrimSpace(c.text) != "" {
			return c
		}
	}
	return candidate{source: SourceNone}
}

// resolveTemplate applies file > bundle > inline config > built-in default
func resolveTemplate(tool types.ToolType, s toolSettings, bundle bundleEntry) (resolvedTemplate, error) {
	userFromFile, err := readOptional(s.prompts.UserFile, "user", tool)
	if err != nil {
		return resolvedTemplate{}, err
	}
	user := resolvePrompt(
		candidate{SourceFile, userFromFile},
		candidate{SourceBundle, bundle.User},
		candidate{SourceConfig, s.prompts.User},
		candidate{SourceDefault, DefaultUserPrompts[tool]},
	)
	if err := validateTemplate(user.text); err != nil {
		return resolvedTemplate{}, fmt.Errorf("invalid user prompt for %s from %s: %w", tool, user.source, err)
	}

	resolved := resolvedTemplate{
		template:     Template{User: user.text},
		userSource:   user.source,
		systemSource: SourceNone,
	}
	if !s.useSystem {
		return resolved, nil
	}

	systemFromFile, err := readOptional(s.prompts.SystemFile, "system", tool)
	if err != nil {
		return resolvedTemplate{}, err
	}
	system := resolvePrompt(
		candidate{SourceFile, systemFromFile},
		candidate{SourceBundle, bundle.System},
		candidate{SourceConfig, s.prompts.System},
		candidate{SourceDefault, DefaultSystemPrompts[tool]},
	)
	if err := validateVerbs(system.text); err != nil {
		return resolvedTemplate{}, fmt.Errorf("invalid system prompt for %s from %s: %w", tool, system.source, err)
	}
	resolved.template.System = system.text
	resolved.systemSource = system.source
	return resolved, nil
}

func readOptional(path, kind string, tool types.ToolType) (string, error) {
	if path == "" {
		return "", nil
	}
	return config.ReadPromptFile(path, kind, tool.String())
}

// validateTemplate requires at least one placeholder and only known verbs
func validateTemplate(text string) error {
	if err := validateVerbs(text); err != nil {
		return err
	}
	for _, verb := range []string{"%[1]s", "%[2]s", "%[3]s"} {
		if strings.Contains(text, verb) {
			return nil
		}
	}
	return fmt.Errorf("template must reference %%[1]s, %%[2]s or %%[3]s")
}

// validateVerbs rejects any fmt verb other than %[1]s, %[2]s, %[3]s and %%
func validateVerbs(text string) error {
	for i := 0; i < len(text); i++ {
		if text[i] != '%' {
			continue
		}
		rest := text[i+1:]
		switch {
		case strings.HasPrefix(rest, "%"):
			i++
		case len(rest) >= 4 && rest[0] == '[' && rest[1] >= '1' && rest[1] <= '3' && rest[2] == ']' && rest[3] == 's':
			i += 4
		default:
			return fmt.Errorf("unsupported verb at offset %d (use %%[1]s, %%[2]s, %%[3]s or %%%%)", i)
		}
	}
	return nil
}

// loadBundle parses the YAML prompt bundle, keyed by tool_type
func loadBundle(path string) (map[types.ToolType]bundleEntry, error) {
	if path == "" {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt bundle %s: %w", path, err)
	}

	var raw map[string]bundleEntry
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt bundle %s: %w", path, err)
	}

	bundle := make(map[types.ToolType]bundleEntry, len(raw))
	for name, entry := range raw {
		tool, ok := types.ParseToolType(name)
		if !ok {
			return nil, fmt.Errorf("prompt bundle %s: unknown tool %q", path, name)
		}
		bundle[tool] = entry
	}
	return bundle, nil
}

// Snapshot returns a copy of all resolved templates
func (r *Registry) Snapshot() map[types.ToolType]Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[types.ToolType]Template, len(r.templates))
	for tool, t := range r.templates {
		out[tool] = t.template
	}
	return out
}
