package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/next-exp/oaevent_go/pkg/logger"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	Verbosity         int       `json:"verbosity" yaml:"verbosity"`
	GeometryDir       string    `json:"geometry_dir" yaml:"geometry_dir"`
	GeometryList      string    `json:"geometry_list" yaml:"geometry_list"`
	GeometryFile      string    `json:"geometry_file" yaml:"geometry_file"`
	GeometryHash      string    `json:"geometry_hash" yaml:"geometry_hash"`
	InputFile         string    `json:"input_file" yaml:"input_file"`
	HitAxisThreshold  float64   `json:"hit_axis_threshold_mm" yaml:"hit_axis_threshold_mm"`
	SMRDForceZ        bool      `json:"smrd_force_z" yaml:"smrd_force_z"`
	DriftChamberNames []string  `json:"drift_chamber_names" yaml:"drift_chamber_names"`
	ComboWeighting    Weighting `json:"combo_weighting" yaml:"combo_weighting"`
	PersistentDigits  bool      `json:"persistent_digits" yaml:"persistent_digits"`
	UseDB             bool      `json:"use_db" yaml:"use_db"`
	Host              string    `json:"host" yaml:"host"`
	User              string    `json:"user" yaml:"user"`
	Passwd            string    `json:"pass" yaml:"pass"`
	DBName            string    `json:"dbname" yaml:"dbname"`
	NumWorkers        int       `json:"num_workers" yaml:"num_workers"`
	Trials            int       `json:"trials" yaml:"trials"`
}

// Default returns the configuration used when a field is absent from the
// configuration file.
func Default() Configuration {
	var config Configuration
	config.Verbosity = 0
	config.GeometryDir = "."
	config.GeometryList = "GEOMETRY.LIST"
	config.HitAxisThreshold = 100.0
	config.SMRDForceZ = true
	config.DriftChamberNames = []string{"TPC", "MM_"}
	config.ComboWeighting = Weighting{Name: "charge", Code: ChargeWeighting}
	config.PersistentDigits = false
	config.UseDB = false
	config.Host = "localhost"
	config.User = "nd280reader"
	config.Passwd = "readonly"
	config.DBName = "ND280"
	config.NumWorkers = 1
	config.Trials = 1
	return config
}

// LoadConfiguration reads a JSON file, or YAML when the extension is .yaml
// or .yml, on top of the defaults.
func LoadConfiguration(filename string) (Configuration, error) {
	config := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("error parsing configuration %q: %w", filename, err)
	}
	return config, nil
}

func PrintConfiguration(config Configuration) {
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Geometry dir: %s", config.GeometryDir), "config")
	logger.Info(fmt.Sprintf("Geometry list: %s", config.GeometryList), "config")
	logger.Info(fmt.Sprintf("Geometry file: %s", config.GeometryFile), "config")
	logger.Info(fmt.Sprintf("Geometry hash: %s", config.GeometryHash), "config")
	logger.Info(fmt.Sprintf("Input file: %s", config.InputFile), "config")
	logger.Info(fmt.Sprintf("Hit axis threshold (mm): %.1f", config.HitAxisThreshold), "config")
	logger.Info(fmt.Sprintf("SMRD force Z: %t", config.SMRDForceZ), "config")
	logger.Info(fmt.Sprintf("Drift chamber names: %s", strings.Join(config.DriftChamberNames, ",")), "config")
	logger.Info(fmt.Sprintf("Combo weighting: %s", config.ComboWeighting), "config")
	logger.Info(fmt.Sprintf("Persistent digits: %t", config.PersistentDigits), "config")
	logger.Info(fmt.Sprintf("Use DB: %t", config.UseDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Trials: %d", config.Trials), "config")
}

var configuration = Default()

func SetConfiguration(c Configuration) {
	configuration = c
}

func GetConfiguration() Configuration {
	return configuration
}
