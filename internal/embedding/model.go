// Package embedding implements a deterministic, training-free text embedding
// based on harmonic projection of token residues over a fixed set of coprime
// moduli. No model file, vocabulary or random state is involved: identical
// input yields a bit-identical vector in every process.
package embedding

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
)

const (
	// Dim is the length of every vector produced by a Model.
	Dim = 2 * NumModuli

	// NumModuli is the number of coprime moduli used for projection.
	NumModuli = 192

	// MaxTokenRunes caps how many code points of a token contribute to its
	// integer encoding.
	MaxTokenRunes = 64

	tokenBase = 65536
)

// ErrInvalidModuli is returned by New when the moduli table cannot produce
// a valid projection.
var ErrInvalidModuli = errors.New("embedding: invalid moduli table")

// moduli holds the first NumModuli primes.
var moduli = [NumModuli]uint64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53,
	59, 61, 67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131,
	137, 139, 149, 151, 157, 163, 167, 173, 179, 181, 191, 193, 197, 199, 211, 223,
	227, 229, 233, 239, 241, 251, 257, 263, 269, 271, 277, 281, 283, 293, 307, 311,
	313, 317, 331, 337, 347, 349, 353, 359, 367, 373, 379, 383, 389, 397, 401, 409,
	419, 421, 431, 433, 439, 443, 449, 457, 461, 463, 467, 479, 487, 491, 499, 503,
	509, 521, 523, 541, 547, 557, 563, 569, 571, 577, 587, 593, 599, 601, 607, 613,
	617, 619, 631, 641, 643, 647, 653, 659, 661, 673, 677, 683, 691, 701, 709, 719,
	727, 733, 739, 743, 751, 757, 761, 769, 773, 787, 797, 809, 811, 821, 823, 827,
	829, 839, 853, 857, 859, 863, 877, 881, 883, 887, 907, 911, 919, 929, 937, 941,
	947, 953, 967, 971, 977, 983, 991, 997, 1009, 1013, 1019, 1021, 1031, 1033, 1039, 1049,
	1051, 1061, 1063, 1069, 1087, 1091, 1093, 1097, 1103, 1109, 1117, 1123, 1129, 1151, 1153, 1163,
}

// Model embeds text into Dim-dimensional L2-normalised vectors.
type Model struct {
	moduli []uint64
}

// New returns a Model over the built-in prime table.
func New() (*Model, error) {
	return newWithModuli(moduli[:])
}

func newWithModuli(mods []uint64) (*Model, error) {
	if len(mods) != NumModuli {
		return nil, fmt.Errorf("%w: have %d moduli, want %d", ErrInvalidModuli, len(mods), NumModuli)
	}
	for i, m := range mods {
		if m < 2 {
			return nil, fmt.Errorf("%w: modulus %d at %d is below 2", ErrInvalidModuli, m, i)
		}
		for _, other := range mods[:i] {
			if gcd(m, other) != 1 {
				return nil, fmt.Errorf("%w: %d and %d are not coprime", ErrInvalidModuli, other, m)
			}
		}
	}
	return &Model{moduli: mods}, nil
}

// Embed returns the embedding of text. Text without any token yields the
// zero vector.
func (m *Model) Embed(text string) []float32 {
	out := make([]float32, Dim)
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return out
	}

	sum := make([]float64, Dim)
	for _, tok := range tokens {
		m.accumulate(sum, tokenInteger(tok))
	}

	n := float64(len(tokens))
	var norm float64
	for i := range sum {
		sum[i] /= n
		norm += sum[i] * sum[i]
	}
	norm = math.Sqrt(norm)

	for i, v := range sum {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}
	return out
}

// EmbedBatch embeds each text independently.
func (m *Model) EmbedBatch(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.Embed(t)
	}
	return out
}

// accumulate adds the harmonic projection of n onto sum.
func (m *Model) accumulate(sum []float64, n uint64) {
	for i, mod := range m.moduli {
		r := n % mod
		theta := 2 * math.Pi * float64(r) / float64(mod)
		sum[2*i] += math.Sin(theta)
		sum[2*i+1] += math.Cos(theta)
	}
}

// tokenInteger folds the first MaxTokenRunes code points of tok into a
// base-65536 integer. Overflow wraps.
func tokenInteger(tok string) uint64 {
	var n uint64
	count := 0
	for _, r := range tok {
		if count == MaxTokenRunes {
			break
		}
		n = n*tokenBase + uint64(r)
		count++
	}
	return n
}

// Tokenize splits text on whitespace and ASCII punctuation and lowercases
// each token.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || isASCIIPunct(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

func isASCIIPunct(r rune) bool {
	return r <= unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r))
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
