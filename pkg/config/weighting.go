package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type WeightingCode int

const (
	ChargeWeighting WeightingCode = iota
	InverseVarianceWeighting
)

// Weighting selects how constituent hits are weighted when a combined hit
// is averaged.
type Weighting struct {
	Name string
	Code WeightingCode
}

var weightingStrings = []string{
	"charge",
	"inverse_variance",
}

func (w Weighting) String() string {
	if w.Code < ChargeWeighting || w.Code > InverseVarianceWeighting {
		return "UNKNOWN"
	}
	return weightingStrings[w.Code]
}

func ParseWeighting(s string) (Weighting, error) {
	for i, v := range weightingStrings {
		if v == s {
			return Weighting{Name: s, Code: WeightingCode(i)}, nil
		}
	}
	return Weighting{}, fmt.Errorf("invalid Weighting: %s", s)
}

func (w Weighting) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

func (w *Weighting) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWeighting(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

func (w Weighting) MarshalYAML() (interface{}, error) {
	return w.String(), nil
}

func (w *Weighting) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseWeighting(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
