package store

import "fmt"

// AccountType is the closed set of account kinds. The zero value is invalid.
type AccountType int

const (
	AccountTypeChequing AccountType = iota + 1
	AccountTypeSavings
)

// AccountTypes lists every valid account type in menu order.
func AccountTypes() []AccountType {
	return []AccountType{AccountTypeChequing, AccountTypeSavings}
}

func (t AccountType) String() string {
	switch t {
	case AccountTypeChequing:
		return "Chequing"
	case AccountTypeSavings:
		return "Savings"
	default:
		return fmt.Sprintf("AccountType(%d)", int(t))
	}
}

// AccountTypeFromChoice maps a 1-based menu choice onto an account type.
func AccountTypeFromChoice(choice int) (AccountType, error) {
	types := AccountTypes()
	if choice < 1 || choice > len(types) {
		return 0, fmt.Errorf("%w: menu choice %d", ErrInvalidAccountType, choice)
	}
	return types[choice-1], nil
}

// MarshalText emits the storage literal, so logs and JSON show CHEQUING/SAVINGS.
func (t AccountType) MarshalText() ([]byte, error) {
	s, err := encodeAccountType(t)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

const (
	chequingLiteral = "CHEQUING"
	savingsLiteral  = "SAVINGS"
)

func encodeAccountType(t AccountType) (string, error) {
	switch t {
	case AccountTypeChequing:
		return chequingLiteral, nil
	case AccountTypeSavings:
		return savingsLiteral, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidAccountType, int(t))
	}
}

func decodeAccountType(s string) (AccountType, error) {
	switch s {
	case chequingLiteral:
		return AccountTypeChequing, nil
	case savingsLiteral:
		return AccountTypeSavings, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAccountType, s)
	}
}
