package bridge

import (
	"errors"
	"fmt"
)

// Protocol error codes answered to remote peers.
const (
	CodeWalletNotInitialized = 5000
	CodeUserRejected         = 5001
	CodeUnsupportedMethod    = 5002
	CodeInvalidParams        = 5003
	CodeSigningFailed        = 5004
	CodeNoHandler            = 5005
)

var ErrAlreadyAnswered = errors.New("request was already answered")

// ProtocolError is the error object sent back over the session protocol.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

func WalletNotInitialized() *ProtocolError {
	return &ProtocolError{Code: CodeWalletNotInitialized, Message: "Wallet not initialized"}
}

func UserRejected() *ProtocolError {
	return &ProtocolError{Code: CodeUserRejected, Message: "User rejected the request"}
}

func UnsupportedMethod(method string) *ProtocolError {
	return &ProtocolError{Code: CodeUnsupportedMethod, Message: fmt.Sprintf("Unsupported method: %s", method)}
}

func InvalidParams(method string) *ProtocolError {
	return &ProtocolError{Code: CodeInvalidParams, Message: fmt.Sprintf("Invalid params for %s", method)}
}

// SigningFailed carries the detail of err, or a generic message when there is none.
func SigningFailed(err error) *ProtocolError {
	message := "Signing failed"
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return &ProtocolError{Code: CodeSigningFailed, Message: message}
}

func NoHandler() *ProtocolError {
	return &ProtocolError{Code: CodeNoHandler, Message: "No handler registered for this event"}
}
