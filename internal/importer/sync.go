package importer

import (
	"context"
	"fmt"

	"github.com/cleared-dev/mt940import/internal/model"
)

// TypeRegistry is the persisted set of known transaction type codes.
type TypeRegistry interface {
	KnownTypeCodes(ctx context.Context) (map[string]bool, error)
	RegisterTypeCodes(ctx context.Context, codes []model.TypeCode) error
}

// SyncTypeCodes registers every type code used by st that reg does not know
// yet, labelled with placeholder. It returns the newly registered codes.
func SyncTypeCodes(ctx context.Context, reg TypeRegistry, st *Statement, placeholder string) ([]string, error) {
	known, err := reg.KnownTypeCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading type registry: %w", err)
	}
	unseen := st.UnseenTypeCodes(known)
	if len(unseen) == 0 {
		return nil, nil
	}
	codes := make([]model.TypeCode, 0, len(unseen))
	for _, c := range unseen {
		tc, err := model.NewTypeCode(c, placeholder)
		if err != nil {
			return nil, err
		}
		codes = append(codes, tc)
	}
	if err := reg.RegisterTypeCodes(ctx, codes); err != nil {
		return nil, fmt.Errorf("registering type codes: %w", err)
	}
	return unseen, nil
}
