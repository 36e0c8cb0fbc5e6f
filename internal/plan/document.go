package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	documentParseErrorTemplateConstant      = "error when parsing %s file; is this a JSON file? does the version match the program version (%s)? consider re-generating the migration file: %v"
	documentVersionMismatchTemplateConstant = "migration file version is not compatible with current version, expected: %s, found: %s"
	documentOpenErrorTemplateConstant       = "unable to open migration file %s: %w"
	documentCreateErrorTemplateConstant     = "unable to create migration file %s: %w"
	documentEncodeErrorTemplateConstant     = "unable to encode migration file %s: %w"
	overwritePromptTemplateConstant         = "Migration file %s already exists. Overwrite? [y/N] "
	saveCancelledMessageConstant            = "migration file already exists"
	describeActionsHeaderTemplateConstant   = "There are %d actions to be done during migration:\n%s"
	describeActionItemTemplateConstant      = "%d. %s"
	describeActionsJoinSeparatorConstant    = "\n"
)

// ErrSaveCancelled reports that the operator declined to overwrite an existing migration file.
var ErrSaveCancelled = errors.New(saveCancelledMessageConstant)

// ParseError reports a migration file whose content could not be decoded.
type ParseError struct {
	Path        string
	ToolVersion string
	Cause       error
}

// Error renders the parse failure with re-planning guidance.
func (parseError ParseError) Error() string {
	return fmt.Sprintf(documentParseErrorTemplateConstant, parseError.Path, parseError.ToolVersion, parseError.Cause)
}

// Unwrap exposes the decoding cause.
func (parseError ParseError) Unwrap() error {
	return parseError.Cause
}

// VersionMismatchError reports a migration file recorded by a different tool version.
type VersionMismatchError struct {
	ExpectedVersion string
	FoundVersion    string
}

// Error renders the version incompatibility.
func (mismatchError VersionMismatchError) Error() string {
	return fmt.Sprintf(documentVersionMismatchTemplateConstant, mismatchError.ExpectedVersion, mismatchError.FoundVersion)
}

// ConfirmationPrompter asks the operator to approve overwriting an existing file.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}

// Document is the versioned, ordered action list persisted between planning and execution.
type Document struct {
	Version string   `json:"version"`
	Actions []Action `json:"actions"`
}

// NewDocument constructs a document for the supplied tool version and actions.
func NewDocument(version string, actions []Action) Document {
	return Document{Version: version, Actions: append([]Action{}, actions...)}
}

// Load reads and decodes the migration file, enforcing the version gate before anything else runs.
func Load(path string, toolVersion string) (Document, error) {
	migrationFile, openError := os.Open(path)
	if openError != nil {
		return Document{}, fmt.Errorf(documentOpenErrorTemplateConstant, path, openError)
	}
	defer migrationFile.Close()

	var document Document
	if decodeError := json.NewDecoder(migrationFile).Decode(&document); decodeError != nil {
		return Document{}, ParseError{Path: path, ToolVersion: toolVersion, Cause: decodeError}
	}

	if document.Version != toolVersion {
		return Document{}, VersionMismatchError{ExpectedVersion: toolVersion, FoundVersion: document.Version}
	}

	return document, nil
}

// Save writes the document to path, asking the prompter before overwriting an existing file.
func (document Document) Save(path string, prompter ConfirmationPrompter) error {
	if _, statError := os.Stat(path); statError == nil {
		overwriteConfirmed := false
		if prompter != nil {
			confirmed, confirmError := prompter.Confirm(fmt.Sprintf(overwritePromptTemplateConstant, path))
			if confirmError != nil {
				return confirmError
			}
			overwriteConfirmed = confirmed
		}
		if !overwriteConfirmed {
			return ErrSaveCancelled
		}
	}

	migrationFile, createError := os.Create(path)
	if createError != nil {
		return fmt.Errorf(documentCreateErrorTemplateConstant, path, createError)
	}
	defer migrationFile.Close()

	if encodeError := json.NewEncoder(migrationFile).Encode(document); encodeError != nil {
		return fmt.Errorf(documentEncodeErrorTemplateConstant, path, encodeError)
	}

	return nil
}

// DescribeActions renders the numbered operator-facing summary of every action in order.
func DescribeActions(actions []Action) string {
	actionLines := make([]string, 0, len(actions))
	for actionIndex, action := range actions {
		actionLines = append(actionLines, fmt.Sprintf(describeActionItemTemplateConstant, actionIndex+1, action.Describe()))
	}
	return fmt.Sprintf(describeActionsHeaderTemplateConstant, len(actions), strings.Join(actionLines, describeActionsJoinSeparatorConstant))
}
