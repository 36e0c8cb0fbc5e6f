package utils_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkus7/migrate-bb-to-gh/internal/utils"
)

const (
	testPrompterCaseShortYesConstant    = "short_yes"
	testPrompterCaseLongYesConstant     = "long_yes"
	testPrompterCaseUppercaseConstant   = "uppercase_yes"
	testPrompterCaseNoConstant          = "explicit_no"
	testPrompterCaseEmptyConstant       = "empty_response"
	testPrompterCaseWhitespaceConstant  = "surrounding_whitespace"
	testPrompterSubtestTemplateConstant = "%d_%s"
	testPromptTextConstant              = "Are you sure you want to migrate? [y/N] "
)

func TestIOConfirmationPrompterConfirm(testInstance *testing.T) {
	testCases := []struct {
		name           string
		typedResponse  string
		expectedResult bool
	}{
		{name: testPrompterCaseShortYesConstant, typedResponse: "y\n", expectedResult: true},
		{name: testPrompterCaseLongYesConstant, typedResponse: "yes\n", expectedResult: true},
		{name: testPrompterCaseUppercaseConstant, typedResponse: "YES\n", expectedResult: true},
		{name: testPrompterCaseNoConstant, typedResponse: "n\n", expectedResult: false},
		{name: testPrompterCaseEmptyConstant, typedResponse: "\n", expectedResult: false},
		{name: testPrompterCaseWhitespaceConstant, typedResponse: "  y  \n", expectedResult: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testPrompterSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			promptOutput := &bytes.Buffer{}
			prompter := utils.NewIOConfirmationPrompter(strings.NewReader(testCase.typedResponse), promptOutput)

			confirmed, confirmError := prompter.Confirm(testPromptTextConstant)
			require.NoError(testInstance, confirmError)
			require.Equal(testInstance, testCase.expectedResult, confirmed)
			require.Equal(testInstance, testPromptTextConstant, promptOutput.String())
		})
	}
}

func TestIOConfirmationPrompterTreatsEOFAsDecline(testInstance *testing.T) {
	prompter := utils.NewIOConfirmationPrompter(strings.NewReader(""), &bytes.Buffer{})

	confirmed, confirmError := prompter.Confirm(testPromptTextConstant)
	require.NoError(testInstance, confirmError)
	require.False(testInstance, confirmed)
}
