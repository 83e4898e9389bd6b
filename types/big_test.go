package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

// 2^1100 + 7, larger than anything a fixed-width decoder handles
var hugeInt = new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 1100), big.NewInt(7))

func TestBigMarshalUnmarshalJSON(t *testing.T) {
	c := qt.New(t)
	for _, v := range []*big.Int{big.NewInt(1234567890), hugeInt} {
		bi := NewBigInt(v)
		bBigInt, err := json.Marshal(map[string]*BigInt{"bi": bi})
		c.Assert(err, qt.IsNil)

		var unmarshaled map[string]*BigInt
		c.Assert(json.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
		c.Assert(unmarshaled["bi"].Equal(bi), qt.IsTrue)
	}

	var bare BigInt
	c.Assert(json.Unmarshal([]byte("42"), &bare), qt.IsNil)
	c.Assert(bare.MathBigInt().Int64(), qt.Equals, int64(42))
	c.Assert(json.Unmarshal([]byte(`"0xzz"`), &bare), qt.Not(qt.IsNil))
}

func TestBigMarshalUnmarshalCBOR(t *testing.T) {
	c := qt.New(t)
	for _, v := range []*big.Int{big.NewInt(1234567890), hugeInt} {
		bi := NewBigInt(v)
		bBigInt, err := cbor.Marshal(map[string]*BigInt{"bi": bi})
		c.Assert(err, qt.IsNil)

		var unmarshaled map[string]*BigInt
		c.Assert(cbor.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
		c.Assert(unmarshaled["bi"].Equal(bi), qt.IsTrue)
	}
}

func TestHexBytes(t *testing.T) {
	c := qt.New(t)
	b := HexBytes{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(b)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"0xdeadbeef"`)

	var out HexBytes
	c.Assert(json.Unmarshal(data, &out), qt.IsNil)
	c.Assert(out, qt.DeepEquals, b)
	c.Assert(json.Unmarshal([]byte(`"deadbeef"`), &out), qt.IsNil)
	c.Assert(out, qt.DeepEquals, b)
}

func TestElectionID(t *testing.T) {
	c := qt.New(t)
	id := NewElectionID()
	parsed, err := ParseElectionID(id.String())
	c.Assert(err, qt.IsNil)
	c.Assert(parsed, qt.Equals, id)

	var fromBytes ElectionID
	c.Assert(fromBytes.SetBytes(id.Bytes()), qt.IsNil)
	c.Assert(fromBytes, qt.Equals, id)

	_, err = ParseElectionID("not-a-uuid")
	c.Assert(err, qt.Not(qt.IsNil))
}
