package db

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"eldersafe/internal/types"
)

// History payloads hold the complete SafetyIndex JSON, which is dominated by
// repeated factor names and recommendation strings; zstd shrinks it well.
// Encoders and decoders are pooled to avoid repeated allocations on the
// poller's write path.
var (
	payloadEncoderPool = sync.Pool{
		New: func() any {
			e, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
			if err != nil {
				panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
			}
			return e
		},
	}

	payloadDecoderPool = sync.Pool{
		New: func() any {
			d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
			}
			return d
		},
	}
)

// EncodeIndexPayload serializes a SafetyIndex to zstd-compressed JSON for
// storage in the assessment history table.
func EncodeIndexPayload(index types.SafetyIndex) ([]byte, error) {
	raw, err := json.Marshal(index)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to serialize safety index payload",
			err,
		)
	}

	enc := payloadEncoderPool.Get().(*zstd.Encoder)
	defer payloadEncoderPool.Put(enc)

	return enc.EncodeAll(raw, nil), nil
}

// DecodeIndexPayload reverses EncodeIndexPayload.
func DecodeIndexPayload(payload []byte) (types.SafetyIndex, error) {
	var index types.SafetyIndex

	dec := payloadDecoderPool.Get().(*zstd.Decoder)
	defer payloadDecoderPool.Put(dec)

	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return index, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decompress safety index payload",
			err,
		)
	}

	if err := json.Unmarshal(raw, &index); err != nil {
		return index, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to deserialize safety index payload",
			err,
		)
	}

	return index, nil
}
