package provider

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/klauspost/reedsolomon"
)

var (
	ErrInvalidShardConfig = errors.New("provider: invalid data/parity shard configuration")
	ErrShardsCorrupt      = errors.New("provider: parity verification failed")
	ErrFrameTooShort      = errors.New("provider: parity frame too short")
)

func init() {
	Register("fec/reedsolomon", func(key []byte) (Provider, error) {
		return NewReedSolomon(4, 2)
	})
}

// fecHeaderSize prefixes each parity frame with the original length and
// the shard size, both uint32 big-endian. Each shard follows prefixed by
// its CRC-32 (IEEE), so the decoder can tell damaged shards apart. The
// frame layout is provider-defined and opaque to the channel core.
const (
	fecHeaderSize   = 8
	fecShardCRCSize = 4
)

// fecProvider is a whole-message codec: the encrypt direction splits the
// message into data shards, computes parity, and emits a framed shard
// group; the decrypt direction drops shards whose checksum does not match,
// reconstructs them from the survivors, and recovers the original bytes.
// More damaged shards than parity can cover surfaces as ErrShardsCorrupt.
type fecProvider struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewReedSolomon builds a Reed-Solomon parity provider with the given
// shard geometry.
func NewReedSolomon(dataShards, parityShards int) (Provider, error) {
	if dataShards <= 0 || parityShards <= 0 {
		return nil, ErrInvalidShardConfig
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &fecProvider{
		enc:          enc,
		dataShards:   dataShards,
		parityShards: parityShards,
	}, nil
}

func (p *fecProvider) Kind() Kind    { return KindFEC }
func (p *fecProvider) IVSize() int   { return 0 }
func (p *fecProvider) Overhead() int { return 0 }

func (p *fecProvider) totalShards() int { return p.dataShards + p.parityShards }

func (p *fecProvider) Transform(op *Op) {
	switch op.Direction {
	case Encrypt:
		p.encode(op)
	case Decrypt:
		p.decode(op)
	}
}

func (p *fecProvider) encode(op *Op) {
	src := op.SrcBytes()
	shards, err := p.enc.Split(src)
	if err != nil {
		op.Complete(0, err)
		return
	}
	if err := p.enc.Encode(shards); err != nil {
		op.Complete(0, err)
		return
	}

	shardSize := len(shards[0])
	frame := make([]byte, fecHeaderSize, fecHeaderSize+p.totalShards()*(fecShardCRCSize+shardSize))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(src)))
	binary.BigEndian.PutUint32(frame[4:8], uint32(shardSize))
	for _, s := range shards {
		var crc [fecShardCRCSize]byte
		binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(s))
		frame = append(frame, crc[:]...)
		frame = append(frame, s...)
	}

	n, err := op.WriteDst(frame)
	op.Complete(n, err)
}

func (p *fecProvider) decode(op *Op) {
	frame := op.SrcBytes()
	if len(frame) < fecHeaderSize {
		op.Complete(0, ErrFrameTooShort)
		return
	}
	origLen := int(binary.BigEndian.Uint32(frame[0:4]))
	shardSize := int(binary.BigEndian.Uint32(frame[4:8]))
	body := frame[fecHeaderSize:]
	stride := fecShardCRCSize + shardSize
	if shardSize <= 0 || len(body) != p.totalShards()*stride {
		op.Complete(0, ErrFrameTooShort)
		return
	}

	// Shards whose checksum does not match are dropped and rebuilt from
	// the survivors.
	shards := make([][]byte, p.totalShards())
	damaged := 0
	for i := range shards {
		want := binary.BigEndian.Uint32(body[i*stride:])
		s := body[i*stride+fecShardCRCSize : (i+1)*stride]
		if crc32.ChecksumIEEE(s) != want {
			damaged++
			continue
		}
		shards[i] = s
	}
	if damaged > p.parityShards {
		op.Complete(0, ErrShardsCorrupt)
		return
	}
	if damaged > 0 {
		if err := p.enc.Reconstruct(shards); err != nil {
			op.Complete(0, ErrShardsCorrupt)
			return
		}
	}
	ok, err := p.enc.Verify(shards)
	if err != nil {
		op.Complete(0, err)
		return
	}
	if !ok {
		op.Complete(0, ErrShardsCorrupt)
		return
	}

	out := make([]byte, 0, origLen)
	for _, s := range shards[:p.dataShards] {
		out = append(out, s...)
	}
	if origLen > len(out) {
		op.Complete(0, ErrFrameTooShort)
		return
	}

	n, werr := op.WriteDst(out[:origLen])
	op.Complete(n, werr)
}
