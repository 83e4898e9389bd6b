package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HexBytes is a []byte which encodes as 0x-prefixed hexadecimal in JSON.
type HexBytes []byte

func (b HexBytes) String() string {
	return hexutil.Encode(b)
}

func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(b)), nil
}

func (b *HexBytes) UnmarshalText(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		s = "0x" + s
	}
	decoded, err := hexutil.Decode(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}
