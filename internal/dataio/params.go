package dataio

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/decision-spot/net-opt/internal/model"
)

// ReadParamsFile loads run parameters from a YAML file, e.g.:
//
//	maxWarehouses: 3
//	costPerMile: 2
//	minLaneCost: 450
//	units: miles
//	objective: weighted_distance
func ReadParamsFile(path string) (model.Params, error) {
	var p model.Params
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse params: %w", err)
	}
	return p, nil
}
