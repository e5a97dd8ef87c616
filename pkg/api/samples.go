package api

import (
	_ "embed"
	"fmt"

	"github.com/mchmarny/duanju/pkg/exercise"
	"gopkg.in/yaml.v3"
)

//go:embed samples.yaml
var samplesYAML []byte

// Samples returns the bundled question set for src. It is used for offline
// practice and when the API cannot be reached.
func Samples(src exercise.Source) ([]exercise.Record, error) {
	var all map[exercise.Source][]exercise.Record
	if err := yaml.Unmarshal(samplesYAML, &all); err != nil {
		return nil, fmt.Errorf("decoding bundled samples: %w", err)
	}
	list, ok := all[src]
	if !ok {
		return nil, fmt.Errorf("no bundled samples for source %q", src)
	}
	return validRecords(list), nil
}
