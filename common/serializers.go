package common

// HashSerializer is a Serializer of the Hash type
type HashSerializer struct{}

func (a HashSerializer) ToBytes(hash Hash) []byte {
	return hash[:]
}
func (a HashSerializer) FromBytes(bytes []byte) Hash {
	var hash Hash
	copy(hash[:], bytes)
	return hash
}
func (a HashSerializer) Size() int {
	return 32
}

// ByteSliceSerializer is a Serializer for arbitrary, variable-length byte
// slices such as tree keys and leaf values. Unlike the fixed-width
// serializers above it has no fixed Size(); callers that need the encoded
// length must inspect the slice itself.
type ByteSliceSerializer struct{}

func (a ByteSliceSerializer) ToBytes(value []byte) []byte {
	return value
}
func (a ByteSliceSerializer) FromBytes(bytes []byte) []byte {
	out := make([]byte, len(bytes))
	copy(out, bytes)
	return out
}
func (a ByteSliceSerializer) Size() int {
	return -1 // variable length
}
