package pipeline

import "github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/predictor"

// ModelSource hands the pipeline the models to use for one run.
type ModelSource interface {
	Models() (*predictor.Models, error)
}

type staticSource struct {
	models *predictor.Models
}

// Static always returns m. Artifacts are immutable for the process lifetime,
// so loading once at startup is enough.
func Static(m *predictor.Models) ModelSource {
	return staticSource{models: m}
}

func (s staticSource) Models() (*predictor.Models, error) { return s.models, nil }

type reloadingSource struct {
	registry *predictor.Registry
}

// Reloading reads the artifacts from disk on every run.
func Reloading(r *predictor.Registry) ModelSource {
	return reloadingSource{registry: r}
}

func (s reloadingSource) Models() (*predictor.Models, error) { return s.registry.Load() }
