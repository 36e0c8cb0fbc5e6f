package credentials

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	stagingDirectoryPatternConstant     = "migrate-bb-to-gh-keys-*"
	stagingDirectoryPermissionsConstant = os.FileMode(0o700)
	keyFilePermissionsConstant          = os.FileMode(0o400)
	cleanupFailureMessageConstant       = "Unable to remove staged credential directory"
	pullKeyFileNameConstant             = "pull_key"
	pushKeyFileNameConstant             = "push_key"
)

// Default staged key file names.
const (
	PullKeyFileName = pullKeyFileNameConstant
	PushKeyFileName = pushKeyFileNameConstant
)

// CredentialError reports a failure to stage one key file.
type CredentialError struct {
	KeyName string
	Cause   error
}

// Error describes the staging failure.
func (credentialError CredentialError) Error() string {
	return fmt.Sprintf("unable to stage credential %s: %v", credentialError.KeyName, credentialError.Cause)
}

// Unwrap exposes the underlying cause.
func (credentialError CredentialError) Unwrap() error {
	return credentialError.Cause
}

// Staging is a private temporary directory holding read-only key files.
type Staging struct {
	directoryPath string
	logger        *zap.Logger
}

// NewStaging creates the staging directory with owner-only permissions.
func NewStaging(logger *zap.Logger) (*Staging, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	directoryPath, creationError := os.MkdirTemp("", stagingDirectoryPatternConstant)
	if creationError != nil {
		return nil, creationError
	}
	if permissionError := os.Chmod(directoryPath, stagingDirectoryPermissionsConstant); permissionError != nil {
		_ = os.RemoveAll(directoryPath)
		return nil, permissionError
	}

	return &Staging{directoryPath: directoryPath, logger: logger}, nil
}

// DirectoryPath returns the staging directory location.
func (staging *Staging) DirectoryPath() string {
	return staging.directoryPath
}

// WriteKey stores key material under the given file name with read-only
// owner permissions and returns the absolute path of the staged file.
func (staging *Staging) WriteKey(keyName string, keyMaterial string) (string, error) {
	keyPath := filepath.Join(staging.directoryPath, keyName)
	if writeError := os.WriteFile(keyPath, []byte(keyMaterial), keyFilePermissionsConstant); writeError != nil {
		return "", CredentialError{KeyName: keyName, Cause: writeError}
	}
	if permissionError := os.Chmod(keyPath, keyFilePermissionsConstant); permissionError != nil {
		return "", CredentialError{KeyName: keyName, Cause: permissionError}
	}

	absoluteKeyPath, resolutionError := filepath.Abs(keyPath)
	if resolutionError != nil {
		return "", CredentialError{KeyName: keyName, Cause: resolutionError}
	}

	return absoluteKeyPath, nil
}

// Cleanup removes the staging directory with every staged key. Removal
// failures are logged and never escalate.
func (staging *Staging) Cleanup() {
	if removalError := os.RemoveAll(staging.directoryPath); removalError != nil {
		staging.logger.Warn(cleanupFailureMessageConstant,
			zap.String("directory", staging.directoryPath),
			zap.Error(removalError),
		)
	}
}
