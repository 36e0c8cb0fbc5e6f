package plan_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkus7/migrate-bb-to-gh/internal/plan"
)

const (
	testToolVersionConstant         = "0.5.2"
	testOtherToolVersionConstant    = "0.4.0"
	testMigrationFileNameConstant   = "migration.json"
	testDescribeExpectationConstant = "There are 2 actions to be done during migration:\n" +
		"1. Set default branch of 'billing-service' repository to 'develop'\n" +
		"2. Start pipeline for billing-service on branch develop"
)

type recordingPrompter struct {
	response bool
	prompts  []string
}

func (prompter *recordingPrompter) Confirm(prompt string) (bool, error) {
	prompter.prompts = append(prompter.prompts, prompt)
	return prompter.response, nil
}

func documentFixture() plan.Document {
	return plan.NewDocument(testToolVersionConstant, []plan.Action{
		{
			SetRepositoryDefaultBranch: &plan.SetRepositoryDefaultBranchAction{
				RepositoryName: testRepositoryNameConstant,
				Branch:         testBranchNameConstant,
			},
		},
		{
			StartPipeline: &plan.StartPipelineAction{
				RepositoryName: testRepositoryNameConstant,
				Branch:         testBranchNameConstant,
			},
		},
	})
}

func TestDocumentSaveAndLoadRoundTrip(testInstance *testing.T) {
	migrationFilePath := filepath.Join(testInstance.TempDir(), testMigrationFileNameConstant)
	originalDocument := documentFixture()

	require.NoError(testInstance, originalDocument.Save(migrationFilePath, nil))

	loadedDocument, loadError := plan.Load(migrationFilePath, testToolVersionConstant)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, originalDocument, loadedDocument)
}

func TestDocumentLoadRejectsVersionMismatch(testInstance *testing.T) {
	migrationFilePath := filepath.Join(testInstance.TempDir(), testMigrationFileNameConstant)
	require.NoError(testInstance, documentFixture().Save(migrationFilePath, nil))

	_, loadError := plan.Load(migrationFilePath, testOtherToolVersionConstant)
	require.Error(testInstance, loadError)

	var mismatchError plan.VersionMismatchError
	require.ErrorAs(testInstance, loadError, &mismatchError)
	require.Equal(testInstance, testOtherToolVersionConstant, mismatchError.ExpectedVersion)
	require.Equal(testInstance, testToolVersionConstant, mismatchError.FoundVersion)
}

func TestDocumentLoadRejectsMalformedFile(testInstance *testing.T) {
	migrationFilePath := filepath.Join(testInstance.TempDir(), testMigrationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(migrationFilePath, []byte("not json"), 0o600))

	_, loadError := plan.Load(migrationFilePath, testToolVersionConstant)
	require.Error(testInstance, loadError)

	var parseError plan.ParseError
	require.ErrorAs(testInstance, loadError, &parseError)
	require.Equal(testInstance, migrationFilePath, parseError.Path)
}

func TestDocumentSaveRefusesOverwriteWhenDeclined(testInstance *testing.T) {
	migrationFilePath := filepath.Join(testInstance.TempDir(), testMigrationFileNameConstant)
	require.NoError(testInstance, documentFixture().Save(migrationFilePath, nil))

	prompter := &recordingPrompter{response: false}
	saveError := documentFixture().Save(migrationFilePath, prompter)
	require.ErrorIs(testInstance, saveError, plan.ErrSaveCancelled)
	require.Len(testInstance, prompter.prompts, 1)
}

func TestDocumentSaveOverwritesWhenConfirmed(testInstance *testing.T) {
	migrationFilePath := filepath.Join(testInstance.TempDir(), testMigrationFileNameConstant)
	require.NoError(testInstance, documentFixture().Save(migrationFilePath, nil))

	prompter := &recordingPrompter{response: true}
	require.NoError(testInstance, documentFixture().Save(migrationFilePath, prompter))
}

func TestDescribeActions(testInstance *testing.T) {
	require.Equal(testInstance, testDescribeExpectationConstant, plan.DescribeActions(documentFixture().Actions))
}
