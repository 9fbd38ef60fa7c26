package model

import (
	"fmt"
	"strings"
)

// TypeCode is an entry in the transaction type registry.
type TypeCode struct {
	Code        string
	Label       string
	Operational bool
}

// MaxTypeCodeLen is the length of the trailing code on a :61: line.
const MaxTypeCodeLen = 4

// NewTypeCode validates a registry entry. The code is uppercased.
func NewTypeCode(code, label string) (TypeCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > MaxTypeCodeLen {
		return TypeCode{}, fmt.Errorf("invalid type code %q", code)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return TypeCode{}, fmt.Errorf("type code %s: label is required", code)
	}
	return TypeCode{Code: code, Label: label}, nil
}
