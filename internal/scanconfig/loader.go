package scanconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a parameter file. Decoding is strict: an unknown key is a
// typo and fails immediately instead of silently scanning with a
// default threshold.
func Load(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read params file: %w", err)
	}
	return Parse(data)
}

// Parse decodes parameters from YAML bytes, starting from Default() so
// a file only needs to name the thresholds it changes.
func Parse(data []byte) (Params, error) {
	p := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Params{}, fmt.Errorf("decode params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
