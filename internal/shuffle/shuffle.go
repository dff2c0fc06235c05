// Package shuffle reorders float32 sample bytes ahead of general purpose
// compression.
//
// Samples are split into byte planes (all byte 0s, then all byte 1s, and
// so on), and each byte is replaced by its difference from the previous
// one. Sign and exponent bytes of neighboring samples rarely differ, so the
// output is long runs of small values:
//
//	Input:  [a0 a1 a2 a3, b0 b1 b2 b3]
//	Planes: [a0 b0, a1 b1, a2 b2, a3 b3]
//	Output: [a0, b0-a0, a1-b0, b1-a1, ...]
package shuffle

// Stride is the size of one sample in bytes.
const Stride = 4

// Encode returns the shuffled and delta coded form of data. Trailing bytes
// that do not fill a sample are kept in place before delta coding.
func Encode(data []byte) []byte {
	out := make([]byte, len(data))
	n := len(data) / Stride
	for offset := 0; offset < Stride; offset++ {
		base := offset * n
		for i := 0; i < n; i++ {
			out[base+i] = data[i*Stride+offset]
		}
	}
	copy(out[n*Stride:], data[n*Stride:])

	for i := len(out) - 1; i >= 1; i-- {
		out[i] -= out[i-1]
	}
	return out
}

// Decode reverses Encode in place and returns the restored bytes, which
// replace data's contents.
func Decode(data []byte) []byte {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}

	out := make([]byte, len(data))
	n := len(data) / Stride
	for offset := 0; offset < Stride; offset++ {
		base := offset * n
		for i := 0; i < n; i++ {
			out[i*Stride+offset] = data[base+i]
		}
	}
	copy(out[n*Stride:], data[n*Stride:])
	copy(data, out)
	return data
}
