package bloom

import "testing"

func TestNoFalseNegatives(t *testing.T) {
	f := New(1000, 0.01)
	keys := make([][]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		keys = append(keys, []byte{byte(i), byte(i >> 8)})
	}
	for _, k := range keys {
		f.Add(k)
	}
	for _, k := range keys {
		if !f.MayContain(k) {
			t.Fatalf("false negative for key %v", k)
		}
	}
}

func TestFalsePositiveRateWithinBound(t *testing.T) {
	const n = 2000
	const target = 0.01
	f := New(n, target)
	for i := 0; i < n; i++ {
		f.Add([]byte{byte(i), byte(i >> 8), byte(i >> 16)})
	}

	falsePositives := 0
	const trials = 20000
	for i := n; i < n+trials; i++ {
		k := []byte{byte(i), byte(i >> 8), byte(i >> 16), 0xFF}
		if f.MayContain(k) {
			falsePositives++
		}
	}

	rate := float64(falsePositives) / float64(trials)
	if rate > target*5 {
		t.Fatalf("false positive rate %.4f exceeds 5x target %.4f", rate, target)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := New(100, 0.01)
	f.Add([]byte("alpha"))
	f.Add([]byte("beta"))

	encoded := f.Encode()
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.NumBits() != f.NumBits() || decoded.NumHashes() != f.NumHashes() {
		t.Fatalf("decoded params mismatch: got bits=%d hashes=%d want bits=%d hashes=%d",
			decoded.NumBits(), decoded.NumHashes(), f.NumBits(), f.NumHashes())
	}
	if !decoded.MayContain([]byte("alpha")) || !decoded.MayContain([]byte("beta")) {
		t.Fatalf("decoded filter lost membership")
	}
}

func TestDecodeRejectsTruncatedBuffer(t *testing.T) {
	f := New(100, 0.01)
	encoded := f.Encode()
	if _, err := Decode(encoded[:headerSize-1]); err == nil {
		t.Fatalf("expected error decoding truncated header")
	}
}
