package config

import (
	"strings"
	"testing"
)

func TestMain_FullDecode(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
main:
  project_name: nyc_airbnb
  experiment_name: development
  steps: "download,data_check"
  components_repository: "https://github.com/example/components#components"
  components_version: "1.0.1"
`), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	m, err := cfg.Main()
	if err != nil {
		t.Fatalf("Main failed: %v", err)
	}

	if m.ProjectName != "nyc_airbnb" {
		t.Errorf("expected ProjectName 'nyc_airbnb', got %q", m.ProjectName)
	}
	if m.ExperimentName != "development" {
		t.Errorf("expected ExperimentName 'development', got %q", m.ExperimentName)
	}
	if m.Steps != "download,data_check" {
		t.Errorf("expected Steps 'download,data_check', got %q", m.Steps)
	}
	if m.ComponentsVersion != "1.0.1" {
		t.Errorf("expected ComponentsVersion '1.0.1', got %q", m.ComponentsVersion)
	}
}

func TestMain_Defaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
main:
  project_name: nyc_airbnb
  experiment_name: development
  components_repository: "https://github.com/example/components"
`), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	m, err := cfg.Main()
	if err != nil {
		t.Fatalf("Main failed: %v", err)
	}

	if m.Steps != "all" {
		t.Errorf("expected default Steps 'all', got %q", m.Steps)
	}
	if m.ComponentsVersion != "main" {
		t.Errorf("expected default ComponentsVersion 'main', got %q", m.ComponentsVersion)
	}
}

func TestMain_RequiredFields(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
main:
  experiment_name: development
  components_repository: "https://github.com/example/components"
`), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err = cfg.Main()
	if err == nil {
		t.Fatal("expected validation error for missing project_name")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("expected a 'required' validation failure, got: %v", err)
	}
}

func TestMain_MissingSection(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
etl:
  sample: sample1.csv
`), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := cfg.Main(); err == nil {
		t.Fatal("expected error for absent main section")
	}
}
