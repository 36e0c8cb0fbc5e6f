package circleci_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkus7/migrate-bb-to-gh/internal/circleci"
)

const (
	testConfigCaseScalarContextConstant = "scalar_context"
	testConfigCaseListContextConstant   = "list_context"
	testConfigCaseBareJobsConstant      = "bare_job_names"
	testConfigCaseNoWorkflowsConstant   = "no_workflows"
	testConfigCaseMalformedConstant     = "malformed_yaml"
	testConfigSubtestTemplateConstant   = "%d_%s"
)

func TestUsedContexts(testInstance *testing.T) {
	testCases := []struct {
		name             string
		configuration    string
		expectedContexts []string
		expectError      bool
	}{
		{
			name: testConfigCaseScalarContextConstant,
			configuration: `
workflows:
  version: 2
  build:
    jobs:
      - build:
          context: org-global
`,
			expectedContexts: []string{"org-global"},
		},
		{
			name: testConfigCaseListContextConstant,
			configuration: `
workflows:
  build-and-deploy:
    jobs:
      - build:
          context:
            - org-global
            - deploy-production
      - deploy:
          context: deploy-production
`,
			expectedContexts: []string{"deploy-production", "org-global"},
		},
		{
			name: testConfigCaseBareJobsConstant,
			configuration: `
workflows:
  version: 2
  build:
    jobs:
      - checkout
      - test
`,
			expectedContexts: []string{},
		},
		{
			name:             testConfigCaseNoWorkflowsConstant,
			configuration:    `version: 2.1`,
			expectedContexts: []string{},
		},
		{
			name:          testConfigCaseMalformedConstant,
			configuration: "workflows: [unbalanced",
			expectError:   true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testConfigSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			usedContexts, parseError := circleci.UsedContexts([]byte(testCase.configuration))

			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}

			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedContexts, usedContexts)
		})
	}
}
