package secrets

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

const (
	sealErrorTemplateConstant = "unable to seal configuration: %w"
	openErrorTemplateConstant = "unable to open sealed configuration: %w"
)

// Seal encrypts the plaintext with a passphrase-derived age recipient.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, recipientError := age.NewScryptRecipient(passphrase)
	if recipientError != nil {
		return nil, fmt.Errorf(sealErrorTemplateConstant, recipientError)
	}

	sealedBuffer := &bytes.Buffer{}
	sealWriter, sealError := age.Encrypt(sealedBuffer, recipient)
	if sealError != nil {
		return nil, fmt.Errorf(sealErrorTemplateConstant, sealError)
	}
	if _, writeError := sealWriter.Write(plaintext); writeError != nil {
		return nil, fmt.Errorf(sealErrorTemplateConstant, writeError)
	}
	if closeError := sealWriter.Close(); closeError != nil {
		return nil, fmt.Errorf(sealErrorTemplateConstant, closeError)
	}

	return sealedBuffer.Bytes(), nil
}

// Open decrypts sealed configuration bytes with the passphrase.
func Open(sealed []byte, passphrase string) ([]byte, error) {
	identity, identityError := age.NewScryptIdentity(passphrase)
	if identityError != nil {
		return nil, fmt.Errorf(openErrorTemplateConstant, identityError)
	}

	openReader, openError := age.Decrypt(bytes.NewReader(sealed), identity)
	if openError != nil {
		return nil, fmt.Errorf(openErrorTemplateConstant, openError)
	}

	plaintext, readError := io.ReadAll(openReader)
	if readError != nil {
		return nil, fmt.Errorf(openErrorTemplateConstant, readError)
	}

	return plaintext, nil
}
