package utils_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkus7/migrate-bb-to-gh/internal/utils"
)

const (
	testLoggerFactorySupportedCaseTemplateConstant = "supported_level_%s_format_%s"
	testLoggerFactoryUnknownLevelCaseConstant      = "unknown_log_level"
	testLoggerFactoryUnknownFormatCaseConstant     = "unknown_log_format"
	testLoggerFactorySubtestTemplateConstant       = "%d_%s"
	testUnknownLogLevelValueConstant               = "verbose"
	testUnknownLogFormatValueConstant              = "plain"
	testLoggerMessageConstant                      = "migration_logger_probe"
	testConsoleLevelMarkerConstant                 = "INFO"
)

func TestLoggerFactoryCreateLogger(testInstance *testing.T) {
	testCases := []struct {
		name               string
		requestedLogLevel  utils.LogLevel
		requestedLogFormat utils.LogFormat
		expectError        bool
		expectJSONOutput   bool
	}{
		{
			name:               fmt.Sprintf(testLoggerFactorySupportedCaseTemplateConstant, utils.LogLevelDebug, utils.LogFormatStructured),
			requestedLogLevel:  utils.LogLevelDebug,
			requestedLogFormat: utils.LogFormatStructured,
			expectError:        false,
			expectJSONOutput:   true,
		},
		{
			name:               fmt.Sprintf(testLoggerFactorySupportedCaseTemplateConstant, utils.LogLevelInfo, utils.LogFormatConsole),
			requestedLogLevel:  utils.LogLevelInfo,
			requestedLogFormat: utils.LogFormatConsole,
			expectError:        false,
			expectJSONOutput:   false,
		},
		{
			name:               testLoggerFactoryUnknownLevelCaseConstant,
			requestedLogLevel:  utils.LogLevel(testUnknownLogLevelValueConstant),
			requestedLogFormat: utils.LogFormatStructured,
			expectError:        true,
		},
		{
			name:               testLoggerFactoryUnknownFormatCaseConstant,
			requestedLogLevel:  utils.LogLevelInfo,
			requestedLogFormat: utils.LogFormat(testUnknownLogFormatValueConstant),
			expectError:        true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testLoggerFactorySubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			loggerFactory := utils.NewLoggerFactory()

			pipeReader, pipeWriter, pipeError := os.Pipe()
			require.NoError(testInstance, pipeError)

			originalStderr := os.Stderr
			os.Stderr = pipeWriter

			logger, creationError := loggerFactory.CreateLogger(testCase.requestedLogLevel, testCase.requestedLogFormat)

			os.Stderr = originalStderr

			if testCase.expectError {
				require.Error(testInstance, creationError)
				require.Nil(testInstance, logger)

				require.NoError(testInstance, pipeWriter.Close())
				require.NoError(testInstance, pipeReader.Close())
				return
			}

			require.NoError(testInstance, creationError)
			require.NotNil(testInstance, logger)

			logger.Info(testLoggerMessageConstant)
			syncError := logger.Sync()
			if syncError != nil {
				require.True(testInstance, errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL))
			}

			require.NoError(testInstance, pipeWriter.Close())

			capturedOutput, readError := io.ReadAll(pipeReader)
			require.NoError(testInstance, readError)
			require.NoError(testInstance, pipeReader.Close())

			trimmedOutput := bytes.TrimSpace(capturedOutput)
			require.NotEmpty(testInstance, trimmedOutput)
			require.Contains(testInstance, string(trimmedOutput), testLoggerMessageConstant)

			if testCase.expectJSONOutput {
				require.True(testInstance, json.Valid(trimmedOutput))
			} else {
				require.False(testInstance, json.Valid(trimmedOutput))
				require.Contains(testInstance, string(trimmedOutput), testConsoleLevelMarkerConstant)
			}
		})
	}
}
