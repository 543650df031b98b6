package predictor

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Registry locates the four stage artifacts by path.
type Registry struct {
	paths  map[Stage]string
	logger logrus.FieldLogger
}

func NewRegistry(paths map[Stage]string, logger logrus.FieldLogger) *Registry {
	return &Registry{paths: paths, logger: logger}
}

// Load reads every stage artifact. Any error means the models cannot be used.
func (r *Registry) Load() (*Models, error) {
	byStage := make(map[Stage]Predictor, len(Stages))
	for _, s := range Stages {
		path, ok := r.paths[s]
		if !ok || path == "" {
			return nil, fmt.Errorf("%w: no path configured for stage %s", ErrArtifactMissing, s)
		}
		p, err := LoadFile(path, s)
		if err != nil {
			return nil, fmt.Errorf("load %s model: %w", s, err)
		}
		r.logger.WithFields(logrus.Fields{"stage": s, "path": path, "model": fmt.Sprintf("%T", p)}).Debug("model loaded")
		byStage[s] = p
	}
	return NewModels(byStage)
}
