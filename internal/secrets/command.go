package secrets

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	configGroupUseConstant              = "config"
	configGroupShortDescriptionConstant = "Manage the sealed configuration file"
	sealCommandUseConstant              = "seal <plaintext-file> <sealed-file>"
	sealCommandShortDescription         = "Encrypt a configuration file with a passphrase"
	openCommandUseConstant              = "open <sealed-file> <plaintext-file>"
	openCommandShortDescription         = "Decrypt a sealed configuration file with a passphrase"
	passphraseFlagNameConstant          = "passphrase"
	passphraseFlagUsageConstant         = "Passphrase protecting the sealed configuration (defaults to " + passphraseEnvironmentVariable + ")."
	passphraseEnvironmentVariable       = "MIGRATEBB_CONFIG_PASSPHRASE"
	missingPassphraseMessageConstant    = "no passphrase provided"
	sealedFilePermissionsConstant       = os.FileMode(0o600)
	fileReadErrorTemplateConstant       = "unable to read %s: %w"
	fileWriteErrorTemplateConstant      = "unable to write %s: %w"
)

// ErrMissingPassphrase reports that neither the flag nor the environment supplied a passphrase.
var ErrMissingPassphrase = errors.New(missingPassphraseMessageConstant)

// CommandBuilder assembles the sealed configuration commands.
type CommandBuilder struct {
	passphraseFlagValue string
}

// Build constructs the config command group with its seal and open subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	groupCommand := &cobra.Command{
		Use:           configGroupUseConstant,
		Short:         configGroupShortDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	groupCommand.PersistentFlags().StringVar(&builder.passphraseFlagValue, passphraseFlagNameConstant, "", passphraseFlagUsageConstant)

	sealCommand := &cobra.Command{
		Use:           sealCommandUseConstant,
		Short:         sealCommandShortDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(2),
		RunE:          builder.runSeal,
	}
	openCommand := &cobra.Command{
		Use:           openCommandUseConstant,
		Short:         openCommandShortDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(2),
		RunE:          builder.runOpen,
	}
	groupCommand.AddCommand(sealCommand)
	groupCommand.AddCommand(openCommand)

	return groupCommand, nil
}

func (builder *CommandBuilder) resolvePassphrase() (string, error) {
	if len(builder.passphraseFlagValue) > 0 {
		return builder.passphraseFlagValue, nil
	}
	if environmentPassphrase := os.Getenv(passphraseEnvironmentVariable); len(environmentPassphrase) > 0 {
		return environmentPassphrase, nil
	}
	return "", ErrMissingPassphrase
}

func (builder *CommandBuilder) runSeal(command *cobra.Command, arguments []string) error {
	passphrase, passphraseError := builder.resolvePassphrase()
	if passphraseError != nil {
		return passphraseError
	}

	plaintext, readError := os.ReadFile(arguments[0])
	if readError != nil {
		return fmt.Errorf(fileReadErrorTemplateConstant, arguments[0], readError)
	}

	sealed, sealError := Seal(plaintext, passphrase)
	if sealError != nil {
		return sealError
	}

	if writeError := os.WriteFile(arguments[1], sealed, sealedFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(fileWriteErrorTemplateConstant, arguments[1], writeError)
	}
	return nil
}

func (builder *CommandBuilder) runOpen(command *cobra.Command, arguments []string) error {
	passphrase, passphraseError := builder.resolvePassphrase()
	if passphraseError != nil {
		return passphraseError
	}

	sealed, readError := os.ReadFile(arguments[0])
	if readError != nil {
		return fmt.Errorf(fileReadErrorTemplateConstant, arguments[0], readError)
	}

	plaintext, openError := Open(sealed, passphrase)
	if openError != nil {
		return openError
	}

	if writeError := os.WriteFile(arguments[1], plaintext, sealedFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(fileWriteErrorTemplateConstant, arguments[1], writeError)
	}
	return nil
}
