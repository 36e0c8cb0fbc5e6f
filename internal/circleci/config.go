package circleci

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	configParseErrorTemplateConstant  = "unable to parse CircleCI configuration: %w"
	contextFieldErrorTemplateConstant = "unexpected context value in CircleCI configuration: %w"
	configFilePathConstant            = ".circleci/config.yml"
)

// ConfigFilePath is the repository-relative location of the CircleCI configuration.
const ConfigFilePath = configFilePathConstant

// contextList accepts both the scalar and the sequence form of the
// workflow job "context" field.
type contextList []string

func (list *contextList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var singleContext string
		if decodeError := value.Decode(&singleContext); decodeError != nil {
			return fmt.Errorf(contextFieldErrorTemplateConstant, decodeError)
		}
		*list = contextList{singleContext}
		return nil
	default:
		var multipleContexts []string
		if decodeError := value.Decode(&multipleContexts); decodeError != nil {
			return fmt.Errorf(contextFieldErrorTemplateConstant, decodeError)
		}
		*list = multipleContexts
		return nil
	}
}

type workflowJobConfiguration struct {
	Context contextList `yaml:"context"`
}

// workflowJob accepts both the bare job name form and the configured
// job form used in workflow job lists.
type workflowJob struct {
	Configuration workflowJobConfiguration
}

func (job *workflowJob) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		job.Configuration = workflowJobConfiguration{}
		return nil
	}

	var configurationByName map[string]workflowJobConfiguration
	if decodeError := value.Decode(&configurationByName); decodeError != nil {
		return fmt.Errorf(contextFieldErrorTemplateConstant, decodeError)
	}
	for _, configuration := range configurationByName {
		job.Configuration = configuration
	}
	return nil
}

type workflowDefinition struct {
	Jobs []workflowJob `yaml:"jobs"`
}

type pipelineConfiguration struct {
	Workflows map[string]yaml.Node `yaml:"workflows"`
}

// UsedContexts extracts the sorted, de-duplicated set of context names
// referenced by the workflow jobs of a CircleCI configuration file.
func UsedContexts(configurationContents []byte) ([]string, error) {
	var configuration pipelineConfiguration
	if parseError := yaml.Unmarshal(configurationContents, &configuration); parseError != nil {
		return nil, fmt.Errorf(configParseErrorTemplateConstant, parseError)
	}

	contextNames := map[string]struct{}{}
	for workflowName, workflowNode := range configuration.Workflows {
		if workflowNode.Kind != yaml.MappingNode {
			continue
		}

		var workflow workflowDefinition
		if decodeError := workflowNode.Decode(&workflow); decodeError != nil {
			return nil, fmt.Errorf(configParseErrorTemplateConstant, fmt.Errorf("workflow %s: %w", workflowName, decodeError))
		}
		for _, job := range workflow.Jobs {
			for _, contextName := range job.Configuration.Context {
				contextNames[contextName] = struct{}{}
			}
		}
	}

	sortedNames := make([]string, 0, len(contextNames))
	for contextName := range contextNames {
		sortedNames = append(sortedNames, contextName)
	}
	sort.Strings(sortedNames)

	return sortedNames, nil
}
