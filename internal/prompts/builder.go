// ABOUTME: Turns a system prompt and user message into a model-specific prompt string
// ABOUTME: Supports llama-chat, codellama, phind, phi4, plain and gpt-oss harmony formats
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harper/local-agent-core/internal/config"
	"github.com/harper/local-agent-core/internal/models"
)

// DefaultSystemPrompt is used when a route does not set one
const DefaultSystemPrompt = "You are an AI assistant."

// DefaultFormat is used when a route does not set one
const DefaultFormat = "llama-chat"

// FormatFunc renders one prompt format
type FormatFunc func(systemPrompt, userInput string) string

var formats = map[string]FormatFunc{
	"llama-chat":      llamaChat,
	"codellama":       codeLlama,
	"code":            codeLlama,
	"phind":           phind,
	"phi4":            phi4,
	"plain":           plain,
	"gpt-oss-harmony": harmony,
}

// Formats returns the supported format names, sorted
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder renders prompts for resolved routes
type Builder struct{}

// NewBuilder creates a prompt builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build renders userText for the route's format. A non-empty longTermContext
// is placed in its own section ahead of the user input.
func (b *Builder) Build(route config.Route, userText, longTermContext string) (string, error) {
	name := route.Format
	if name == "" {
		name = DefaultFormat
	}
	format, ok := formats[name]
	if !ok {
		return "", models.NewError(models.KindConfiguration, "build prompt", fmt.Errorf("unknown prompt format %q", name))
	}

	systemPrompt := route.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}

	return format(systemPrompt, WithContext(userText, longTermContext)), nil
}

// WithContext prefixes text with a past-context section when context is present
func WithContext(text, longTermContext string) string {
	if strings.TrimSpace(longTermContext) == "" {
		return text
	}
	return "--- RELEVANT PAST CONTEXT ---\n" + longTermContext + "\n\n--- CURRENT USER INPUT ---\n" + text
}

func llamaChat(systemPrompt, userInput string) string {
	return "<s><|start_header_id|>system<|end_header_id|>\n\n" +
		systemPrompt +
		"<|eot_id|><|start_header_id|>user<|end_header_id|>\n\n" +
		userInput +
		"<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n"
}

func codeLlama(systemPrompt, userInput string) string {
	return "[INST] <<SYS>> " + systemPrompt + " <</SYS>>\n\n" + userInput + "\n[/INST]"
}

func phind(systemPrompt, userInput string) string {
	return "### System Prompt\n" + systemPrompt + "\n\n### User Message\n" + userInput + "\n\n### Assistant\n"
}

func phi4(systemPrompt, userInput string) string {
	return "<|system|>" + systemPrompt + "<|end|><|user|>" + userInput + "<|end|><|assistant|>"
}

func plain(systemPrompt, userInput string) string {
	return "System: " + systemPrompt + "\n\nUser: " + userInput + "\nAssistant:"
}

func harmony(systemPrompt, userInput string) string {
	return "<|start|>system<|message|>" + systemPrompt + "<|end|>" +
		"<|start|>user<|message|>" + userInput + "<|end|>" +
		"<|start|>assistant"
}
