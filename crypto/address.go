package crypto

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cosmos/cosmos-sdk/types/bech32"
)

// Characters that are never valid in an address and would be dangerous if an address ended up in a shell.
const dangerousCharacters = ";&|`$(){}[]<>'\"\\\n\r\t"

// AddressValidator checks addresses against a fixed prefix, length range and charset.
type AddressValidator struct {
	Prefix string

	// Bounds on the characters after "<prefix>1"
	MinDataLength int
	MaxDataLength int

	// Bounds on the whole address
	MinTotalLength int
	MaxTotalLength int

	pattern *regexp.Regexp
}

// NewAccountAddressValidator validates account addresses (ex. gonka1...).
func NewAccountAddressValidator(prefix string) *AddressValidator {
	return newAddressValidator(prefix, 20, 50)
}

// NewValidatorAddressValidator validates validator operator addresses (ex. gonkavaloper1...). The
// total length bound grows with the longer prefix.
func NewValidatorAddressValidator(accountPrefix, validatorPrefix string) *AddressValidator {
	extra := len(validatorPrefix) - len(accountPrefix)
	if extra < 0 {
		extra = 0
	}
	return newAddressValidator(validatorPrefix, 20, 50+extra)
}

func newAddressValidator(prefix string, minTotal, maxTotal int) *AddressValidator {
	v := &AddressValidator{
		Prefix:         prefix,
		MinDataLength:  38,
		MaxDataLength:  58,
		MinTotalLength: minTotal,
		MaxTotalLength: maxTotal,
	}
	v.pattern = regexp.MustCompile(fmt.Sprintf("^%s1[a-z0-9]{%d,%d}$", regexp.QuoteMeta(prefix), v.MinDataLength, v.MaxDataLength))
	return v
}

// IsValid reports whether the address passes Validate.
func (v *AddressValidator) IsValid(address string) bool {
	return v.Validate(address) == nil
}

// Validate returns ErrInvalidAddress wrapped with the failing rule.
func (v *AddressValidator) Validate(address string) error {
	if address == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.ContainsAny(address, dangerousCharacters) {
		return fmt.Errorf("%w: contains forbidden characters", ErrInvalidAddress)
	}
	if len(address) < v.MinTotalLength || len(address) > v.MaxTotalLength {
		return fmt.Errorf("%w: length %d outside [%d, %d]", ErrInvalidAddress, len(address), v.MinTotalLength, v.MaxTotalLength)
	}
	if !strings.HasPrefix(address, v.Prefix+"1") {
		return fmt.Errorf("%w: expected prefix %s", ErrInvalidAddress, v.Prefix)
	}
	if !v.pattern.MatchString(address) {
		return fmt.Errorf("%w: unexpected characters", ErrInvalidAddress)
	}

	hrp, data, err := bech32.DecodeAndConvert(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	if hrp != v.Prefix {
		return fmt.Errorf("%w: expected prefix %s, got %s", ErrInvalidAddress, v.Prefix, hrp)
	}
	if len(data) != 20 && len(data) != 32 {
		return fmt.Errorf("%w: unexpected address length %d", ErrInvalidAddress, len(data))
	}

	return nil
}
