package planner_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkus7/migrate-bb-to-gh/internal/plan"
	"github.com/arkus7/migrate-bb-to-gh/internal/planner"
	"github.com/arkus7/migrate-bb-to-gh/internal/utils"
)

const testToolVersionConstant = "0.5.2"

func TestPlanCommandBuilderValidatesDependencies(testInstance *testing.T) {
	missingLoggerBuilder := &planner.CommandBuilder{}
	_, buildError := missingLoggerBuilder.Build()
	require.ErrorIs(testInstance, buildError, planner.ErrCommandLoggerMissing)

	missingPrompterBuilder := &planner.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
	}
	_, buildError = missingPrompterBuilder.Build()
	require.ErrorIs(testInstance, buildError, planner.ErrCommandPrompterMissing)
}

func TestPlanShowDescribesSavedPlan(testInstance *testing.T) {
	migrationFilePath := filepath.Join(testInstance.TempDir(), "migration.json")
	document := plan.NewDocument(testToolVersionConstant, []plan.Action{
		{StartPipeline: &plan.StartPipelineAction{RepositoryName: testRepositoryNameConstant, Branch: "develop"}},
	})
	require.NoError(testInstance, document.Save(migrationFilePath, nil))

	builder := &planner.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		Prompter:       utils.NewIOConfirmationPrompter(bytes.NewBufferString("y\n"), &bytes.Buffer{}),
		ToolVersion:    testToolVersionConstant,
	}
	groupCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	commandOutput := &bytes.Buffer{}
	groupCommand.SetArgs([]string{"show", migrationFilePath})
	groupCommand.SetOut(commandOutput)
	groupCommand.SetErr(&bytes.Buffer{})

	require.NoError(testInstance, groupCommand.Execute())
	require.Contains(testInstance, commandOutput.String(), "There are 1 actions to be done during migration:")
	require.Contains(testInstance, commandOutput.String(), "1. Start pipeline for "+testRepositoryNameConstant+" on branch develop")
}

func TestPlanShowRejectsVersionMismatch(testInstance *testing.T) {
	migrationFilePath := filepath.Join(testInstance.TempDir(), "migration.json")
	document := plan.NewDocument("0.0.1", []plan.Action{
		{StartPipeline: &plan.StartPipelineAction{RepositoryName: testRepositoryNameConstant, Branch: "develop"}},
	})
	require.NoError(testInstance, document.Save(migrationFilePath, nil))

	builder := &planner.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		Prompter:       utils.NewIOConfirmationPrompter(bytes.NewBufferString("y\n"), &bytes.Buffer{}),
		ToolVersion:    testToolVersionConstant,
	}
	groupCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	groupCommand.SetArgs([]string{"show", migrationFilePath})
	groupCommand.SetOut(&bytes.Buffer{})
	groupCommand.SetErr(&bytes.Buffer{})

	executionError := groupCommand.Execute()
	require.Error(testInstance, executionError)

	var mismatchError plan.VersionMismatchError
	require.ErrorAs(testInstance, executionError, &mismatchError)
	require.Equal(testInstance, "0.0.1", mismatchError.FoundVersion)
}
