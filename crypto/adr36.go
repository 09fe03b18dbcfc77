package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ADR-36 lets a key sign arbitrary data by wrapping it in an amino document that can never be a valid transaction.
const adr36MsgType = "sign/MsgSignData"

type adr36Msg struct {
	Type  string        `json:"type"`
	Value adr36MsgValue `json:"value"`
}

type adr36MsgValue struct {
	Signer string `json:"signer"`
	Data   string `json:"data"`
}

// NewADR36SignDoc wraps data so that it can be signed through SignAmino.
func NewADR36SignDoc(signer string, data []byte) (AminoSignDoc, error) {
	msg, err := json.Marshal(adr36Msg{
		Type: adr36MsgType,
		Value: adr36MsgValue{
			Signer: signer,
			Data:   base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return AminoSignDoc{}, err
	}

	return AminoSignDoc{
		AccountNumber: "0",
		ChainID:       "",
		Fee: AminoFee{
			Amount: []AminoCoin{},
			Gas:    "0",
		},
		Memo:     "",
		Msgs:     []json.RawMessage{msg},
		Sequence: "0",
	}, nil
}

// IsADR36SignDoc reports whether a document is an arbitrary data signature request.
func IsADR36SignDoc(doc AminoSignDoc) bool {
	_, _, err := ExtractADR36Message(doc)
	return err == nil
}

// ExtractADR36Message returns the signer and the data carried by an ADR-36 document.
func ExtractADR36Message(doc AminoSignDoc) (signer string, data []byte, err error) {
	if len(doc.Msgs) != 1 {
		return "", nil, fmt.Errorf("%w: expected exactly one message, got %d", ErrInvalidADR36Doc, len(doc.Msgs))
	}
	if doc.ChainID != "" || doc.Memo != "" {
		return "", nil, fmt.Errorf("%w: chain id and memo must be empty", ErrInvalidADR36Doc)
	}
	if doc.AccountNumber != "0" || doc.Sequence != "0" {
		return "", nil, fmt.Errorf("%w: account number and sequence must be zero", ErrInvalidADR36Doc)
	}
	if doc.Fee.Gas != "0" || len(doc.Fee.Amount) != 0 {
		return "", nil, fmt.Errorf("%w: fee must be empty", ErrInvalidADR36Doc)
	}

	var msg adr36Msg
	if err := json.Unmarshal(doc.Msgs[0], &msg); err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidADR36Doc, err)
	}
	if msg.Type != adr36MsgType {
		return "", nil, fmt.Errorf("%w: unexpected message type %s", ErrInvalidADR36Doc, msg.Type)
	}

	data, err = base64.StdEncoding.DecodeString(msg.Value.Data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: data is not base64", ErrInvalidADR36Doc)
	}
	return msg.Value.Signer, data, nil
}
