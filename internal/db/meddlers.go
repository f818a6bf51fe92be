package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

// Column converters for go-ethereum hex types. Tag a field with
// `meddler:"col,hash"` or `meddler:"col,address"`; values are stored as 0x
// strings and NULL maps to a nil pointer.
func init() {
	meddler.Register("hash", hexMeddler[common.Hash]{parse: common.HexToHash})
	meddler.Register("address", hexMeddler[common.Address]{parse: common.HexToAddress})
}

type hexValue interface {
	comparable
	Hex() string
}

// hexMeddler stores T and *T columns through T.Hex.
type hexMeddler[T hexValue] struct {
	parse func(string) T
}

func (hexMeddler[T]) PreRead(any) (any, error) {
	return new(sql.NullString), nil
}

func (m hexMeddler[T]) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch dst := fieldAddr.(type) {
	case *T:
		var zero T
		*dst = zero
		if ns.Valid {
			*dst = m.parse(ns.String)
		}
	case **T:
		*dst = nil
		if ns.Valid {
			v := m.parse(ns.String)
			*dst = &v
		}
	default:
		var zero T
		return fmt.Errorf("expected *%T or **%T, got %T", zero, zero, fieldAddr)
	}
	return nil
}

func (hexMeddler[T]) PreWrite(field any) (any, error) {
	switch v := field.(type) {
	case T:
		return v.Hex(), nil
	case *T:
		if v == nil {
			return nil, nil
		}
		return (*v).Hex(), nil
	default:
		var zero T
		return nil, fmt.Errorf("expected %T or *%T, got %T", zero, zero, field)
	}
}
