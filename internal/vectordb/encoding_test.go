package vectordb

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	vecs := [][]float32{
		{1.0, 2.0, 3.0, -0.5},
		{0, float32(math.Copysign(0, -1)), math.MaxFloat32, -math.MaxFloat32, math.SmallestNonzeroFloat32},
		{},
	}
	for _, v := range vecs {
		blob := EncodeEmbedding(v)
		if len(blob) != len(v)*4 {
			t.Fatalf("blob length = %d, want %d", len(blob), len(v)*4)
		}
		got, err := DecodeEmbedding(blob)
		if err != nil {
			t.Fatalf("DecodeEmbedding: %v", err)
		}
		if len(got) != len(v) {
			t.Fatalf("len = %d, want %d", len(got), len(v))
		}
		for i := range v {
			if math.Float32bits(got[i]) != math.Float32bits(v[i]) {
				t.Errorf("component %d = %v, want %v", i, got[i], v[i])
			}
		}
	}
}

func TestEncode_LittleEndianLayout(t *testing.T) {
	// 1.0 is 0x3f800000.
	got := EncodeEmbedding([]float32{1.0})
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	if !slices.Equal(got, want) {
		t.Errorf("EncodeEmbedding(1.0) = % x, want % x", got, want)
	}
}

func TestDecode_RejectsPartialComponent(t *testing.T) {
	blob := append(EncodeEmbedding([]float32{1, 2}), 0xff)
	if _, err := DecodeEmbedding(blob); !errors.Is(err, ErrCorruptEmbedding) {
		t.Errorf("err = %v, want ErrCorruptEmbedding", err)
	}
}
