package migrate

import (
	"go.uber.org/zap"

	"github.com/arkus7/migrate-bb-to-gh/internal/credentials"
)

// SSHKeyStore stages the configured pull and push keys for one run.
type SSHKeyStore struct {
	pullKeyMaterial string
	pushKeyMaterial string
	logger          *zap.Logger
}

// NewSSHKeyStore constructs a store around the configured key material.
func NewSSHKeyStore(pullKeyMaterial string, pushKeyMaterial string, logger *zap.Logger) *SSHKeyStore {
	return &SSHKeyStore{pullKeyMaterial: pullKeyMaterial, pushKeyMaterial: pushKeyMaterial, logger: logger}
}

type stagedSSHKeys struct {
	staging     *credentials.Staging
	pullKeyPath string
	pushKeyPath string
}

func (keys stagedSSHKeys) PullKeyPath() string {
	return keys.pullKeyPath
}

func (keys stagedSSHKeys) PushKeyPath() string {
	return keys.pushKeyPath
}

func (keys stagedSSHKeys) Cleanup() {
	keys.staging.Cleanup()
}

// StageKeys writes both keys into a fresh private directory. A staging
// failure removes whatever was written before returning.
func (store *SSHKeyStore) StageKeys() (StagedKeys, error) {
	staging, stagingError := credentials.NewStaging(store.logger)
	if stagingError != nil {
		return nil, stagingError
	}

	pullKeyPath, pullError := staging.WriteKey(credentials.PullKeyFileName, store.pullKeyMaterial)
	if pullError != nil {
		staging.Cleanup()
		return nil, pullError
	}
	pushKeyPath, pushError := staging.WriteKey(credentials.PushKeyFileName, store.pushKeyMaterial)
	if pushError != nil {
		staging.Cleanup()
		return nil, pushError
	}

	return stagedSSHKeys{staging: staging, pullKeyPath: pullKeyPath, pushKeyPath: pushKeyPath}, nil
}
