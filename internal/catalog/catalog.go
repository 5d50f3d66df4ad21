// Package catalog holds the prompts and models a benchmark may use.
package catalog

import (
	"sort"
	"sync"

	"github.com/haskel/benchfox/internal/config"
	"github.com/haskel/benchfox/internal/ollama"
)

// Prompt is one benchmark workload.
type Prompt struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Complexity  string `json:"complexity"`
	Text        string `json:"prompt"`
}

// ModelStatus is a configured or installed model with its download state.
type ModelStatus struct {
	Name       string `json:"name"`
	Downloaded bool   `json:"downloaded"`
	SizeBytes  int64  `json:"size"`
	Configured bool   `json:"configured"`
}

// Catalog is safe for concurrent use. Update swaps the whole content.
type Catalog struct {
	mu       sync.RWMutex
	models   []string
	prompts  []Prompt
	index    map[string]int
	observed map[string]bool
}

func New(models []string, prompts []Prompt) *Catalog {
	c := &Catalog{observed: make(map[string]bool)}
	c.Update(models, prompts)
	return c
}

// FromConfig builds a catalog from the benchmark section of the config.
func FromConfig(cfg config.BenchmarkConfig) *Catalog {
	return New(cfg.Models, PromptsFromConfig(cfg.Prompts))
}

func PromptsFromConfig(in []config.PromptConfig) []Prompt {
	out := make([]Prompt, 0, len(in))
	for _, p := range in {
		out = append(out, Prompt{
			ID:          p.ID,
			Name:        p.Name,
			Category:    p.Category,
			Icon:        p.Icon,
			Description: p.Description,
			Complexity:  p.Complexity,
			Text:        p.Prompt,
		})
	}
	return out
}

func (c *Catalog) Update(models []string, prompts []Prompt) {
	index := make(map[string]int, len(prompts))
	for i, p := range prompts {
		index[p.ID] = i
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.models = append([]string(nil), models...)
	c.prompts = append([]Prompt(nil), prompts...)
	c.index = index
}

func (c *Catalog) Prompts() []Prompt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Prompt(nil), c.prompts...)
}

func (c *Catalog) Prompt(id string) (Prompt, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return Prompt{}, false
	}
	return c.prompts[i], true
}

func (c *Catalog) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.models...)
}

// KnownModel reports whether name is configured or was seen installed on
// the server by a previous Statuses call.
func (c *Catalog) KnownModel(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.models {
		if m == name {
			return true
		}
	}
	return c.observed[name]
}

// Observe marks a model as installed on the server, e.g. after a pull.
func (c *Catalog) Observe(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observed[name] = true
}

// Statuses merges the configured models with those installed on the
// server. Configured models come first in config order, then any other
// installed models sorted by name.
func (c *Catalog) Statuses(installed []ollama.Model) []ModelStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ModelStatus, 0, len(c.models)+len(installed))
	configured := make(map[string]bool, len(c.models))

	for _, name := range c.models {
		configured[name] = true
		st := ModelStatus{Name: name, Configured: true}
		for _, m := range installed {
			if ollama.HasModel([]ollama.Model{m}, name) {
				st.Downloaded = true
				st.SizeBytes = m.SizeBytes
				break
			}
		}
		out = append(out, st)
	}

	var extra []ModelStatus
	for _, m := range installed {
		c.observed[m.Name] = true
		if configured[m.Name] {
			continue
		}
		extra = append(extra, ModelStatus{Name: m.Name, Downloaded: true, SizeBytes: m.SizeBytes})
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })

	return append(out, extra...)
}
