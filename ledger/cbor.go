package ledger

import "github.com/fxamacker/cbor/v2"

// encMode fixes field order to declaration order (Sort: cbor.SortNone)
// rather than the library's default canonical key-ascending sort. Every
// entity struct tags its fields with small `keyasint` integers in
// declaration order; once a tag is assigned to a field it is never
// reassigned, even if the field is later deprecated, so that old encoded
// values stay decodable.
var encMode cbor.EncMode

func init() {
	m, err := cbor.EncOptions{Sort: cbor.SortNone}.EncMode()
	if err != nil {
		panic(err)
	}
	encMode = m
}

// Marshal encodes v with the stable field-order encoding options used by
// every entity in this package.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes b into v.
func Unmarshal(b []byte, v interface{}) error {
	return cbor.Unmarshal(b, v)
}
