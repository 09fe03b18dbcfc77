package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/kisa-team/gonka-wallet/coding"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/crypto"
	"github.com/kisa-team/gonka-wallet/log"
	"github.com/kisa-team/gonka-wallet/util"
)

var ErrSignerMismatch = errors.New("signer address is not the active account")

// AccountSource provides the account that approvals sign with, if one is loaded.
type AccountSource interface {
	Active() (tx.SigningAccount, bool)
}

// DocSigner signs documents built by someone else. It must check that the key that signed derives to
// the signing address.
type DocSigner interface {
	SignDirectDoc(ctx context.Context, account tx.SigningAccount, signDoc *txtypes.SignDoc) (*crypto.DirectSignResponse, error)
	SignAminoDoc(ctx context.Context, account tx.SigningAccount, signDoc crypto.AminoSignDoc) (*crypto.AminoSignResponse, error)
}

var _ DocSigner = (*tx.Signer)(nil)

// Transport sends answers back to the relay.
type Transport interface {
	Approve(ctx context.Context, proposalID uint64, namespaces map[string]Namespace) error
	Reject(ctx context.Context, proposalID uint64, reason *ProtocolError) error
	Respond(ctx context.Context, topic string, id uint64, result interface{}, rpcErr *ProtocolError) error
}

// EventSource yields inbound events until it fails or ctx ends.
type EventSource interface {
	Next(ctx context.Context) (Event, error)
}

// Bridge routes remote signing requests to registered handlers and answers every request exactly once.
type Bridge struct {
	transport Transport
	accounts  AccountSource
	signer    DocSigner

	lock            sync.RWMutex
	proposalHandler SessionProposalHandler
	directHandler   SignDirectHandler
	aminoHandler    SignAminoHandler
	endHandler      SessionEndHandler

	logger *log.Logger
}

func NewBridge(transport Transport, accounts AccountSource, signer DocSigner, logger *log.Logger) (*Bridge, error) {
	if transport == nil || accounts == nil || signer == nil {
		return nil, errors.New("bridge needs a transport, an account source and a signer")
	}

	return &Bridge{
		transport: transport,
		accounts:  accounts,
		signer:    signer,
		logger:    logger.ApplyPrefix("🌉 [bridge]"),
	}, nil
}

func (b *Bridge) SetSessionProposalHandler(handler SessionProposalHandler) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.proposalHandler = handler
}

func (b *Bridge) SetSignDirectHandler(handler SignDirectHandler) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.directHandler = handler
}

func (b *Bridge) SetSignAminoHandler(handler SignAminoHandler) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.aminoHandler = handler
}

func (b *Bridge) SetSessionEndHandler(handler SessionEndHandler) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.endHandler = handler
}

// Serve dispatches events from source until it fails or ctx ends. A failed dispatch is logged and
// does not stop the loop.
func (b *Bridge) Serve(ctx context.Context, source EventSource) error {
	for {
		event, err := source.Next(ctx)
		if err != nil {
			return err
		}
		if err := b.HandleEvent(ctx, event); err != nil {
			b.logger.Error("failed to handle event", "type", event.Type, "id", event.ID, "error", err.Error())
		}
	}
}

// HandleEvent dispatches one event. The returned error is a failure to answer the peer, protocol
// errors are sent, not returned.
func (b *Bridge) HandleEvent(ctx context.Context, event Event) error {
	logger := b.logger.With("type", event.Type, "id", event.ID, "topic", event.Topic)
	logger.Debug("received event")

	switch event.Type {
	case EventSessionProposal:
		return b.onSessionProposal(ctx, event)
	case EventSessionRequest:
		return b.onSessionRequest(ctx, event)
	case EventSessionDelete, EventSessionExpire:
		b.lock.RLock()
		handler := b.endHandler
		b.lock.RUnlock()
		if handler != nil {
			b.invoke(func() {
				handler.HandleSessionEnd(ctx, SessionEnd{Topic: event.Topic, Expired: event.Type == EventSessionExpire})
			}, nil, nil)
		}
		return nil
	}

	logger.Warn("ignoring unknown event")
	return nil
}

func (b *Bridge) onSessionProposal(ctx context.Context, event Event) error {
	b.lock.RLock()
	handler := b.proposalHandler
	b.lock.RUnlock()

	if handler == nil {
		b.logger.Info("no handler for session proposal, rejecting", "id", event.ID)
		return b.transport.Reject(ctx, event.ID, NoHandler())
	}

	var params proposalParams
	if err := json.Unmarshal(event.Params, &params); err != nil {
		return b.transport.Reject(ctx, event.ID, InvalidParams(EventSessionProposal))
	}

	namespace, ok := params.OptionalNamespaces[cosmosNamespace]
	if !ok || len(namespace.Chains) == 0 {
		namespace = params.RequiredNamespaces[cosmosNamespace]
	}

	proposal := &SessionProposal{
		ID:        event.ID,
		Proposer:  params.Proposer.Metadata,
		Namespace: namespace,
		bridge:    b,
	}

	var answerErr error
	b.invoke(func() {
		handler.HandleSessionProposal(ctx, proposal)
	}, &proposal.answer, func(reason *ProtocolError) {
		answerErr = b.transport.Reject(ctx, proposal.ID, reason)
	})
	return answerErr
}

func (b *Bridge) approveProposal(ctx context.Context, proposal *SessionProposal, address string) error {
	if len(proposal.Namespace.Chains) == 0 {
		reason := InvalidParams(EventSessionProposal)
		if err := b.transport.Reject(ctx, proposal.ID, reason); err != nil {
			return err
		}
		return reason
	}

	accounts := make([]string, 0, len(proposal.Namespace.Chains))
	for _, chainID := range proposal.Namespace.Chains {
		accounts = append(accounts, chainID+":"+address)
	}

	err := b.transport.Approve(ctx, proposal.ID, map[string]Namespace{
		cosmosNamespace: {
			Accounts: accounts,
			Methods:  proposal.Namespace.Methods,
			Events:   proposal.Namespace.Events,
		},
	})
	if err != nil {
		return err
	}

	b.logger.Info("session proposal approved", "id", proposal.ID, "proposer", proposal.Proposer.Name)
	return nil
}

func (b *Bridge) onSessionRequest(ctx context.Context, event Event) error {
	var params sessionRequestParams
	if err := json.Unmarshal(event.Params, &params); err != nil {
		return b.transport.Respond(ctx, event.Topic, event.ID, nil, InvalidParams(EventSessionRequest))
	}

	method := params.Request.Method
	switch method {
	case MethodGetAccounts:
		return b.getAccounts(ctx, event)
	case MethodSignDirect:
		return b.onSignDirect(ctx, event, params)
	case MethodSignAmino:
		return b.onSignAmino(ctx, event, params)
	}

	b.logger.Warn("unsupported method", "method", method, "id", event.ID)
	return b.transport.Respond(ctx, event.Topic, event.ID, nil, UnsupportedMethod(method))
}

func (b *Bridge) getAccounts(ctx context.Context, event Event) error {
	account, ok := b.accounts.Active()
	if !ok {
		return b.transport.Respond(ctx, event.Topic, event.ID, nil, WalletNotInitialized())
	}

	return b.transport.Respond(ctx, event.Topic, event.ID, []AccountData{
		{
			Algo:    "secp256k1",
			Address: account.Address,
			PubKey:  base64.StdEncoding.EncodeToString(account.PubKey.Bytes()),
		},
	}, nil)
}

func (b *Bridge) onSignDirect(ctx context.Context, event Event, params sessionRequestParams) error {
	b.lock.RLock()
	handler := b.directHandler
	b.lock.RUnlock()

	if handler == nil {
		b.logger.Info("no handler for sign direct, rejecting", "id", event.ID)
		return b.transport.Respond(ctx, event.Topic, event.ID, nil, NoHandler())
	}

	signerAddress, rawDoc, ok := parseSignParams(params.Request.Params)
	if !ok {
		return b.transport.Respond(ctx, event.Topic, event.ID, nil, InvalidParams(MethodSignDirect))
	}
	signDoc, err := decodeDirectSignDoc(rawDoc)
	if err != nil {
		b.logger.Warn("invalid direct sign doc", "id", event.ID, "error", err.Error())
		return b.transport.Respond(ctx, event.Topic, event.ID, nil, InvalidParams(MethodSignDirect))
	}

	request := &SignDirectRequest{
		Topic:         event.Topic,
		ID:            event.ID,
		ChainID:       params.ChainID,
		SignerAddress: signerAddress,
		SignDoc:       signDoc,
		bridge:        b,
	}
	return b.dispatchRequest(ctx, event, &request.answer, func() {
		handler.HandleSignDirect(ctx, request)
	})
}

func (b *Bridge) onSignAmino(ctx context.Context, event Event, params sessionRequestParams) error {
	b.lock.RLock()
	handler := b.aminoHandler
	b.lock.RUnlock()

	if handler == nil {
		b.logger.Info("no handler for sign amino, rejecting", "id", event.ID)
		return b.transport.Respond(ctx, event.Topic, event.ID, nil, NoHandler())
	}

	signerAddress, rawDoc, ok := parseSignParams(params.Request.Params)
	if !ok {
		return b.transport.Respond(ctx, event.Topic, event.ID, nil, InvalidParams(MethodSignAmino))
	}
	var signDoc crypto.AminoSignDoc
	if err := json.Unmarshal(rawDoc, &signDoc); err != nil {
		return b.transport.Respond(ctx, event.Topic, event.ID, nil, InvalidParams(MethodSignAmino))
	}

	request := &SignAminoRequest{
		Topic:         event.Topic,
		ID:            event.ID,
		ChainID:       params.ChainID,
		SignerAddress: signerAddress,
		SignDoc:       signDoc,
		bridge:        b,
	}
	return b.dispatchRequest(ctx, event, &request.answer, func() {
		handler.HandleSignAmino(ctx, request)
	})
}

func (b *Bridge) dispatchRequest(ctx context.Context, event Event, guard *answer, call func()) error {
	var answerErr error
	b.invoke(call, guard, func(reason *ProtocolError) {
		answerErr = b.transport.Respond(ctx, event.Topic, event.ID, nil, reason)
	})
	return answerErr
}

// invoke runs a handler. A panic is answered as a signing failure, and a request the handler left
// unanswered is rejected.
func (b *Bridge) invoke(call func(), guard *answer, abandon func(reason *ProtocolError)) {
	defer func() {
		if r := recover(); r != nil {
			err := util.InterfaceToError(r)
			b.logger.Error("handler panicked", "error", err.Error())
			if guard != nil && guard.claim() {
				abandon(SigningFailed(err))
			}
			return
		}
		if guard != nil && guard.claim() {
			b.logger.Info("handler returned without answering, rejecting")
			abandon(UserRejected())
		}
	}()

	call()
}

func (b *Bridge) activeSigner(signerAddress string) (tx.SigningAccount, *ProtocolError) {
	account, ok := b.accounts.Active()
	if !ok {
		return tx.SigningAccount{}, WalletNotInitialized()
	}
	if signerAddress != account.Address {
		return tx.SigningAccount{}, SigningFailed(fmt.Errorf("%w: %s", ErrSignerMismatch, signerAddress))
	}
	return account, nil
}

// fail answers a request with reason and hands reason back to the approving caller.
// fail answers the peer with reason, then hands reason back to the caller for reporting.
func (b *Bridge) fail(ctx context.Context, topic string, id uint64, reason *ProtocolError) error {
	if err := b.transport.Respond(ctx, topic, id, nil, reason); err != nil {
		return fmt.Errorf("failed to answer request %d: %w", id, err)
	}
	return reason
}

func (b *Bridge) approveSignDirect(ctx context.Context, request *SignDirectRequest) error {
	account, reason := b.activeSigner(request.SignerAddress)
	if reason != nil {
		return b.fail(ctx, request.Topic, request.ID, reason)
	}

	response, err := b.signer.SignDirectDoc(ctx, account, request.SignDoc)
	if err != nil {
		b.logger.Error("failed to sign direct", "id", request.ID, "error", err.Error())
		return b.fail(ctx, request.Topic, request.ID, SigningFailed(err))
	}
	signature, err := signatureData(response.Signature)
	if err != nil {
		return b.fail(ctx, request.Topic, request.ID, SigningFailed(err))
	}

	result := SignDirectResult{
		Signed: SignedDirectDoc{
			BodyBytes:     base64.StdEncoding.EncodeToString(response.Signed.BodyBytes),
			AuthInfoBytes: base64.StdEncoding.EncodeToString(response.Signed.AuthInfoBytes),
			ChainID:       response.Signed.ChainId,
			AccountNumber: strconv.FormatUint(response.Signed.AccountNumber, 10),
		},
		Signature: signature,
	}
	if err := b.transport.Respond(ctx, request.Topic, request.ID, result, nil); err != nil {
		return err
	}

	b.logger.Info("sign direct approved", "id", request.ID, "fingerprint", coding.PayloadFingerprint(response.Signed.BodyBytes))
	return nil
}

func (b *Bridge) approveSignAmino(ctx context.Context, request *SignAminoRequest) error {
	account, reason := b.activeSigner(request.SignerAddress)
	if reason != nil {
		return b.fail(ctx, request.Topic, request.ID, reason)
	}

	response, err := b.signer.SignAminoDoc(ctx, account, request.SignDoc)
	if err != nil {
		b.logger.Error("failed to sign amino", "id", request.ID, "error", err.Error())
		return b.fail(ctx, request.Topic, request.ID, SigningFailed(err))
	}
	signature, err := signatureData(response.Signature)
	if err != nil {
		return b.fail(ctx, request.Topic, request.ID, SigningFailed(err))
	}

	result := SignAminoResult{
		Signed:    response.Signed,
		Signature: signature,
	}
	if err := b.transport.Respond(ctx, request.Topic, request.ID, result, nil); err != nil {
		return err
	}

	b.logger.Info("sign amino approved", "id", request.ID, "adr36", request.IsADR36())
	return nil
}

func signatureData(signature crypto.StdSignature) (SignatureData, error) {
	pubKey, err := crypto.EncodeAminoPubKey(signature.PubKey)
	if err != nil {
		return SignatureData{}, err
	}
	return SignatureData{
		PubKey:    pubKey,
		Signature: base64.StdEncoding.EncodeToString(signature.Signature),
	}, nil
}

func parseSignParams(raw json.RawMessage) (string, json.RawMessage, bool) {
	var params signRequestParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return "", nil, false
	}

	doc := bytes.TrimSpace(params.SignDoc)
	if params.SignerAddress == "" || len(doc) == 0 || bytes.Equal(doc, []byte("null")) {
		return "", nil, false
	}
	return params.SignerAddress, doc, true
}

func decodeDirectSignDoc(raw json.RawMessage) (*txtypes.SignDoc, error) {
	var wire wireDirectSignDoc
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}

	bodyBytes, err := coding.DecodeJSONBytes(wire.BodyBytes)
	if err != nil {
		return nil, fmt.Errorf("body bytes: %w", err)
	}
	authInfoBytes, err := coding.DecodeJSONBytes(wire.AuthInfoBytes)
	if err != nil {
		return nil, fmt.Errorf("auth info bytes: %w", err)
	}
	if len(bodyBytes) == 0 || len(authInfoBytes) == 0 {
		return nil, errors.New("sign doc is missing bytes")
	}

	accountNumber, err := util.NumberToUint64(wire.AccountNumber)
	if err != nil {
		return nil, fmt.Errorf("account number: %w", err)
	}

	return &txtypes.SignDoc{
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		ChainId:       wire.ChainID,
		AccountNumber: accountNumber,
	}, nil
}
