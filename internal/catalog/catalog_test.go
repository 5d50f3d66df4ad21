package catalog

import (
	"testing"

	"github.com/haskel/benchfox/internal/config"
	"github.com/haskel/benchfox/internal/ollama"
)

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.Default().Benchmark)

	if len(c.Prompts()) != 5 {
		t.Fatalf("expected 5 prompts, got %d", len(c.Prompts()))
	}

	p, ok := c.Prompt("reasoning")
	if !ok {
		t.Fatal("expected reasoning prompt")
	}
	if p.Text == "" || p.Name != "Multi-Step Reasoning" {
		t.Errorf("unexpected prompt %+v", p)
	}

	if _, ok := c.Prompt("unknown"); ok {
		t.Error("expected unknown prompt to be missing")
	}
}

func TestKnownModel(t *testing.T) {
	c := New([]string{"llama3.2:1b"}, nil)

	if !c.KnownModel("llama3.2:1b") {
		t.Error("expected configured model to be known")
	}
	if c.KnownModel("phi3:mini") {
		t.Error("expected phi3:mini unknown before it is observed")
	}

	c.Statuses([]ollama.Model{{Name: "phi3:mini", Downloaded: true}})
	if !c.KnownModel("phi3:mini") {
		t.Error("expected installed model to become known")
	}
}

func TestStatuses(t *testing.T) {
	c := New([]string{"llama3.2:1b", "mistral", "qwen2.5:3b"}, nil)

	got := c.Statuses([]ollama.Model{
		{Name: "zeta:1b", SizeBytes: 5},
		{Name: "mistral:latest", SizeBytes: 4000},
		{Name: "llama3.2:1b", SizeBytes: 1300},
		{Name: "alpha:2b", SizeBytes: 7},
	})

	want := []ModelStatus{
		{Name: "llama3.2:1b", Downloaded: true, SizeBytes: 1300, Configured: true},
		{Name: "mistral", Downloaded: true, SizeBytes: 4000, Configured: true},
		{Name: "qwen2.5:3b", Downloaded: false, Configured: true},
		{Name: "alpha:2b", Downloaded: true, SizeBytes: 7},
		{Name: "mistral:latest", Downloaded: true, SizeBytes: 4000},
		{Name: "zeta:1b", Downloaded: true, SizeBytes: 5},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d statuses, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestUpdateReplacesContent(t *testing.T) {
	c := New([]string{"a"}, []Prompt{{ID: "p1", Text: "one"}})
	c.Update([]string{"b"}, []Prompt{{ID: "p2", Text: "two"}})

	if c.KnownModel("a") {
		t.Error("expected old model removed")
	}
	if _, ok := c.Prompt("p1"); ok {
		t.Error("expected old prompt removed")
	}
	if p, ok := c.Prompt("p2"); !ok || p.Text != "two" {
		t.Errorf("expected new prompt, got %+v", p)
	}
}
