package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSurvey reads a survey definition from filePath. An empty path yields the
// built-in definition.
func LoadSurvey(filePath string) (*SurveyDefinition, error) {
	if filePath == "" {
		log.Printf("No survey file configured, using built-in definition.")
		return DefaultSurvey(), nil
	}

	log.Printf("Loading survey definition from %s...", filePath)

	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read survey file '%s': %w", filePath, err)
	}

	var def SurveyDefinition
	if err := yaml.Unmarshal(yamlFile, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML from '%s': %w", filePath, err)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("survey validation failed: %w", err)
	}

	log.Printf("Survey definition loaded and validated successfully. %d questions found.", len(def.Questions))
	return &def, nil
}
