package encryption

import (
	"fmt"

	"hoard-go/internal/config"
	"hoard-go/internal/hoard"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. Type "none" returns nil: snapshots are stored in plaintext and the
// archive writer takes the unencrypted path.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (hoard.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
