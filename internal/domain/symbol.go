package domain

import "strings"

// AssetType enumerates the instrument classes a Symbol can represent.
type AssetType int

const (
	AssetSpot AssetType = iota
	AssetFuture
	AssetOption
	AssetSwap
	AssetBond
	AssetIndex
	AssetCommodity
	AssetCrypto
	AssetForex
	AssetStock
)

func (a AssetType) String() string {
	switch a {
	case AssetFuture:
		return "future"
	case AssetOption:
		return "option"
	case AssetSwap:
		return "swap"
	case AssetBond:
		return "bond"
	case AssetIndex:
		return "index"
	case AssetCommodity:
		return "commodity"
	case AssetCrypto:
		return "crypto"
	case AssetForex:
		return "forex"
	case AssetStock:
		return "stock"
	default:
		return "spot"
	}
}

// Symbol identifies a tradeable instrument. The triple (Code, Exchange,
// AssetType) is the unique id; Code is uppercased and Exchange lowercased at
// construction so equality and map-keying are stable regardless of caller
// casing.
type Symbol struct {
	Code      string
	Exchange  string
	AssetType AssetType
}

func NewSymbol(code, exchange string, assetType AssetType) Symbol {
	return Symbol{
		Code:      strings.ToUpper(code),
		Exchange:  strings.ToLower(exchange),
		AssetType: assetType,
	}
}

func (s Symbol) String() string {
	return s.Code + ":" + s.Exchange + ":" + s.AssetType.String()
}

func (s Symbol) Equal(other Symbol) bool {
	return s.Code == other.Code && s.Exchange == other.Exchange && s.AssetType == other.AssetType
}
