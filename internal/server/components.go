package server

import (
	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/catalog"
	"github.com/haskel/benchfox/internal/ollama"
	"github.com/haskel/benchfox/internal/progress"
	"github.com/haskel/benchfox/internal/schedule"
	"github.com/haskel/benchfox/internal/storage"
)

// Components are the parts of the application the API exposes.
// History and Scheduler are optional.
type Components struct {
	Runner    *benchmark.Runner
	Progress  *progress.Store
	Client    ollama.Client
	Catalog   *catalog.Catalog
	System    benchmark.SystemInfo
	History   storage.Store
	Scheduler *schedule.Scheduler
}
