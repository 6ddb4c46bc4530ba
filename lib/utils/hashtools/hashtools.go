package hashtools

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sys/cpu"
)

const HashLength = 28

type HashType byte

const (
	_ HashType = iota // skip first to start with non-0

	SHA2_224    // can be faster if SHA2-256 crypto instructions are available
	BLAKE2b_224 // fastest on most 64bit CPUs without dedicated crypto instructions
	BLAKE3_224  // fastest on 32bit arm stuff (without SHA2 instructions) or AVX2 supporting stuff

	hashTypeMax = iota - 1
)

var hashNames = [hashTypeMax]string{"sha2", "blake2b", "blake3"}

var hasherFactories = [hashTypeMax]func() hash.Hash{
	sha256.New224,
	func() hash.Hash { x, _ := blake2b.New(HashLength, nil); return x },
	func() hash.Hash { return blake3.New() },
}

func (t HashType) String() string {
	if t == 0 || t > hashTypeMax {
		return fmt.Sprintf("HashType(%d)", byte(t))
	}
	return hashNames[t-1]
}

// AutoPick returns hash type expected to be fastest on this CPU.
func AutoPick() HashType {
	// currently only ARM64 because pretty much guaranteed gain
	if cpu.ARM64.HasSHA2 {
		return SHA2_224
	}
	if cpu.X86.HasAVX2 {
		return BLAKE3_224
	}
	return BLAKE2b_224
}

// ParseHashType accepts "auto", "" or one of hash names.
func ParseHashType(s string) (HashType, error) {
	s = strings.ToLower(s)
	if s == "" || s == "auto" {
		return AutoPick(), nil
	}
	for i, n := range hashNames {
		if n == s {
			return HashType(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown hash type %q", s)
}

type hashCtx struct {
	h       hash.Hash
	copyBuf *[32 * 1024]byte
	x       big.Int
	strBuf  [48]byte // 1 type byte + up to 32 hash bytes, also enough for 44 base36 chars
}

// Hasher makes textual content hashes usable as file names.
type Hasher struct {
	t    HashType
	pool sync.Pool
}

func NewHasher(t HashType) *Hasher {
	if t == 0 || t > hashTypeMax {
		panic("invalid hash type")
	}
	return &Hasher{t: t}
}

func (hr *Hasher) Type() HashType { return hr.t }

func (hr *Hasher) getCtx() *hashCtx {
	s, _ := hr.pool.Get().(*hashCtx)
	if s != nil {
		s.h.Reset()
	} else {
		s = &hashCtx{
			h:       hasherFactories[hr.t-1](),
			copyBuf: new([32 * 1024]byte),
		}
	}
	return s
}

// MakeFileHash returns textual representation of content hash for use in filename.
func (hr *Hasher) MakeFileHash(r io.Reader) (s string, e error) {
	hs := hr.getCtx()

	// first byte - hash type
	hs.strBuf[0] = byte(hr.t)

	_, e = io.CopyBuffer(hs.h, r, hs.copyBuf[:])
	if e != nil {
		return
	}
	hs.h.Sum(hs.strBuf[1:][:0])

	// convert to base36 number and print it
	hs.x.SetBytes(hs.strBuf[:1+HashLength])
	xb := hs.x.Append(hs.strBuf[:0], 36)

	// flip (we want front bits to be more variable)
	for i, j := 0, len(xb)-1; i < j; i, j = i+1, j-1 {
		xb[i], xb[j] = xb[j], xb[i]
	}

	s = string(xb)

	hr.pool.Put(hs)

	return
}
