package crypto

import "errors"

var (
	// ErrInvalidSeed is returned for any mnemonic that fails word list or checksum validation.
	ErrInvalidSeed = errors.New("invalid seed phrase")

	ErrUnknownSigner      = errors.New("signer address does not belong to this key")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidADR36Doc    = errors.New("sign doc is not a valid ADR-36 document")
	ErrUnsupportedPubKey  = errors.New("unsupported public key type")
	ErrSignatureMalformed = errors.New("signature does not verify against public key")
)
