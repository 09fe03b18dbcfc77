package bridge

import (
	"context"
	"encoding/json"
	"sync/atomic"

	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/kisa-team/gonka-wallet/crypto"
)

// Inbound event types.
const (
	EventSessionProposal = "session_proposal"
	EventSessionRequest  = "session_request"
	EventSessionDelete   = "session_delete"
	EventSessionExpire   = "session_expire"
)

// Methods of a session_request.
const (
	MethodGetAccounts = "cosmos_getAccounts"
	MethodSignDirect  = "cosmos_signDirect"
	MethodSignAmino   = "cosmos_signAmino"
)

const cosmosNamespace = "cosmos"

// Event is one inbound message from the relay. Params depend on Type.
type Event struct {
	Type   string
	ID     uint64
	Topic  string
	Params json.RawMessage
}

// Metadata describes the application on the other end of a session.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
}

type Namespace struct {
	Chains   []string `json:"chains,omitempty"`
	Accounts []string `json:"accounts,omitempty"`
	Methods  []string `json:"methods"`
	Events   []string `json:"events"`
}

// answer makes sure a request gets exactly one reply.
type answer struct {
	done atomic.Bool
}

func (a *answer) claim() bool {
	return a.done.CompareAndSwap(false, true)
}

// SessionProposal asks to open a session with the wallet.
type SessionProposal struct {
	ID       uint64
	Proposer Metadata
	// The cosmos namespace requested, optional namespaces first.
	Namespace Namespace

	answer
	bridge *Bridge
}

// Approve opens the session for address on every requested chain.
func (p *SessionProposal) Approve(ctx context.Context, address string) error {
	if !p.claim() {
		return ErrAlreadyAnswered
	}
	return p.bridge.approveProposal(ctx, p, address)
}

func (p *SessionProposal) Reject(ctx context.Context) error {
	if !p.claim() {
		return ErrAlreadyAnswered
	}
	return p.bridge.transport.Reject(ctx, p.ID, UserRejected())
}

// SignDirectRequest asks for a signature over a protobuf sign doc.
type SignDirectRequest struct {
	Topic         string
	ID            uint64
	ChainID       string
	SignerAddress string
	SignDoc       *txtypes.SignDoc

	answer
	bridge *Bridge
}

// Approve signs with the active account and answers the peer. When signing cannot happen the peer is
// answered with the failure and the same *ProtocolError is returned for information only. The request
// is answered either way, so callers must not answer it again.
func (r *SignDirectRequest) Approve(ctx context.Context) error {
	if !r.claim() {
		return ErrAlreadyAnswered
	}
	return r.bridge.approveSignDirect(ctx, r)
}

func (r *SignDirectRequest) Reject(ctx context.Context) error {
	if !r.claim() {
		return ErrAlreadyAnswered
	}
	return r.bridge.transport.Respond(ctx, r.Topic, r.ID, nil, UserRejected())
}

// SignAminoRequest asks for a signature over a legacy JSON sign doc.
type SignAminoRequest struct {
	Topic         string
	ID            uint64
	ChainID       string
	SignerAddress string
	SignDoc       crypto.AminoSignDoc

	answer
	bridge *Bridge
}

// Approve signs the legacy doc with the active account. Errors follow SignDirectRequest.Approve: the
// peer has already been answered when one is returned.
func (r *SignAminoRequest) Approve(ctx context.Context) error {
	if !r.claim() {
		return ErrAlreadyAnswered
	}
	return r.bridge.approveSignAmino(ctx, r)
}

func (r *SignAminoRequest) Reject(ctx context.Context) error {
	if !r.claim() {
		return ErrAlreadyAnswered
	}
	return r.bridge.transport.Respond(ctx, r.Topic, r.ID, nil, UserRejected())
}

// IsADR36 reports whether the request signs arbitrary data rather than a transaction.
func (r *SignAminoRequest) IsADR36() bool {
	return crypto.IsADR36SignDoc(r.SignDoc)
}

// SessionEnd is reported when a peer deletes a session or it expires.
type SessionEnd struct {
	Topic   string
	Expired bool
}

// Handlers are registered per event kind. Handlers run on the dispatching goroutine, and a request
// left unanswered when its handler returns is rejected.
type SessionProposalHandler interface {
	HandleSessionProposal(ctx context.Context, proposal *SessionProposal)
}

type SignDirectHandler interface {
	HandleSignDirect(ctx context.Context, request *SignDirectRequest)
}

type SignAminoHandler interface {
	HandleSignAmino(ctx context.Context, request *SignAminoRequest)
}

type SessionEndHandler interface {
	HandleSessionEnd(ctx context.Context, end SessionEnd)
}

type SessionProposalHandlerFunc func(ctx context.Context, proposal *SessionProposal)

func (f SessionProposalHandlerFunc) HandleSessionProposal(ctx context.Context, proposal *SessionProposal) {
	f(ctx, proposal)
}

type SignDirectHandlerFunc func(ctx context.Context, request *SignDirectRequest)

func (f SignDirectHandlerFunc) HandleSignDirect(ctx context.Context, request *SignDirectRequest) {
	f(ctx, request)
}

type SignAminoHandlerFunc func(ctx context.Context, request *SignAminoRequest)

func (f SignAminoHandlerFunc) HandleSignAmino(ctx context.Context, request *SignAminoRequest) {
	f(ctx, request)
}

type SessionEndHandlerFunc func(ctx context.Context, end SessionEnd)

func (f SessionEndHandlerFunc) HandleSessionEnd(ctx context.Context, end SessionEnd) {
	f(ctx, end)
}

// Results sent back to the peer.

type AccountData struct {
	Algo    string `json:"algo"`
	Address string `json:"address"`
	PubKey  string `json:"pubkey"`
}

type SignatureData struct {
	PubKey    crypto.AminoPubKey `json:"pub_key"`
	Signature string             `json:"signature"`
}

type SignedDirectDoc struct {
	BodyBytes     string `json:"bodyBytes"`
	AuthInfoBytes string `json:"authInfoBytes"`
	ChainID       string `json:"chainId"`
	AccountNumber string `json:"accountNumber"`
}

type SignDirectResult struct {
	Signed    SignedDirectDoc `json:"signed"`
	Signature SignatureData   `json:"signature"`
}

type SignAminoResult struct {
	Signed    crypto.AminoSignDoc `json:"signed"`
	Signature SignatureData       `json:"signature"`
}

// Wire shapes of inbound params.

type proposalParams struct {
	Proposer struct {
		Metadata Metadata `json:"metadata"`
	} `json:"proposer"`
	RequiredNamespaces map[string]Namespace `json:"requiredNamespaces"`
	OptionalNamespaces map[string]Namespace `json:"optionalNamespaces"`
}

type sessionRequestParams struct {
	ChainID string `json:"chainId"`
	Request struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	} `json:"request"`
}

type signRequestParams struct {
	SignerAddress string          `json:"signerAddress"`
	SignDoc       json.RawMessage `json:"signDoc"`
}

type wireDirectSignDoc struct {
	BodyBytes     json.RawMessage `json:"bodyBytes"`
	AuthInfoBytes json.RawMessage `json:"authInfoBytes"`
	ChainID       string          `json:"chainId"`
	AccountNumber json.Number     `json:"accountNumber"`
}
