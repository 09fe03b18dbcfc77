package tx

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/kisa-team/gonka-wallet/crypto"
	"github.com/kisa-team/gonka-wallet/log"
)

var errSignDocModified = errors.New("signer returned a different sign doc")

// SigningAccount is an address, the public key it claims and whatever produces its signatures. The
// signing capability may be a local key or a remote peer.
type SigningAccount struct {
	Address string
	PubKey  cryptotypes.PubKey
	Signer  crypto.SigningCapability
}

func AccountFromKeyPair(kp *crypto.KeyPair) SigningAccount {
	return SigningAccount{
		Address: kp.Address,
		PubKey:  kp.Public,
		Signer:  kp,
	}
}

// Signer turns messages into a signed envelope. Every signature it passes on has been checked to come
// from a key that derives to the signing address.
type Signer struct {
	builder       *EnvelopeBuilder
	signingInfo   *SigningInfoProvider
	accountPrefix string

	logger *log.Logger
}

func NewSigner(builder *EnvelopeBuilder, signingInfo *SigningInfoProvider, accountPrefix string, logger *log.Logger) *Signer {
	return &Signer{
		builder:       builder,
		signingInfo:   signingInfo,
		accountPrefix: accountPrefix,
		logger:        logger.ApplyPrefix("🔏 [signer]"),
	}
}

// VerifySigner checks that pubKey derives to the declared address.
func VerifySigner(declared string, pubKey cryptotypes.PubKey, accountPrefix string) error {
	derived, err := crypto.AddressFromPublicKey(pubKey, accountPrefix)
	if err != nil {
		return err
	}
	if derived != declared {
		return &MismatchError{Expected: declared, Derived: derived}
	}
	return nil
}

// Sign fetches signing metadata, assembles the envelope and has the account sign it.
func (s *Signer) Sign(ctx context.Context, account SigningAccount, msgs []sdk.Msg, memo string, fee *Fee) (*SignedEnvelope, error) {
	if err := VerifySigner(account.Address, account.PubKey, s.accountPrefix); err != nil {
		return nil, err
	}

	metadata, err := s.signingInfo.SigningMetadataForAccount(ctx, account.Address)
	if err != nil {
		return nil, err
	}

	unsigned, err := s.builder.Build(msgs, memo, fee, metadata, account.PubKey)
	if err != nil {
		return nil, err
	}

	signDoc := unsigned.SignDoc()
	response, err := s.SignDirectDoc(ctx, account, signDoc)
	if err != nil {
		return nil, err
	}

	// The envelope is broadcast with the bytes built here, so the signature must cover exactly those.
	if !sameSignDoc(signDoc, response.Signed) {
		return nil, errSignDocModified
	}

	s.logger.Debug("signed transaction",
		"address", account.Address,
		"account_number", metadata.AccountNumber(),
		"sequence", metadata.Sequence(),
		"chain_id", metadata.ChainID(),
		"messages", len(msgs),
	)

	return newSignedEnvelope(unsigned, response.Signature.Signature), nil
}

// SignDirectDoc requests a direct mode signature and checks both the returned key and the signature
// over the document actually signed.
func (s *Signer) SignDirectDoc(ctx context.Context, account SigningAccount, signDoc *txtypes.SignDoc) (*crypto.DirectSignResponse, error) {
	response, err := account.Signer.SignDirect(ctx, account.Address, signDoc)
	if err != nil {
		return nil, err
	}
	if response.Signed == nil {
		response.Signed = signDoc
	}

	if err := VerifySigner(account.Address, response.Signature.PubKey, s.accountPrefix); err != nil {
		s.logger.Error("signature key does not match signing address", "address", account.Address, "error", err.Error())
		return nil, err
	}

	signBytes, err := response.Signed.Marshal()
	if err != nil {
		return nil, err
	}
	if err := crypto.VerifySignature(response.Signature.PubKey, signBytes, response.Signature.Signature); err != nil {
		return nil, err
	}

	return response, nil
}

// SignAminoDoc is SignDirectDoc for legacy JSON documents.
func (s *Signer) SignAminoDoc(ctx context.Context, account SigningAccount, signDoc crypto.AminoSignDoc) (*crypto.AminoSignResponse, error) {
	response, err := account.Signer.SignAmino(ctx, account.Address, signDoc)
	if err != nil {
		return nil, err
	}

	if err := VerifySigner(account.Address, response.Signature.PubKey, s.accountPrefix); err != nil {
		s.logger.Error("signature key does not match signing address", "address", account.Address, "error", err.Error())
		return nil, err
	}

	signBytes, err := response.Signed.SignBytes()
	if err != nil {
		return nil, fmt.Errorf("encode amino sign doc: %w", err)
	}
	if err := crypto.VerifySignature(response.Signature.PubKey, signBytes, response.Signature.Signature); err != nil {
		return nil, err
	}

	return response, nil
}

func sameSignDoc(a, b *txtypes.SignDoc) bool {
	return bytes.Equal(a.BodyBytes, b.BodyBytes) &&
		bytes.Equal(a.AuthInfoBytes, b.AuthInfoBytes) &&
		a.ChainId == b.ChainId &&
		a.AccountNumber == b.AccountNumber
}
