// Package persist implements the persistence manager of spec.md section
// 4.4: versioned envelope serialization, a pluggable storage.Backend,
// an optional zstd compression hook, and a worker-pool-driven auto-save
// scheduler.
package persist

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/fluxorio/statecore"
)

// FormatVersion is the only envelope shape this package writes or reads.
// load rejects any other value with a VersionError, per spec.md section
// 4.4.
const FormatVersion = 1

// Metadata is the free-form descriptive block accompanying a persisted
// machine, supplementing the distilled spec's envelope with the fields
// the original Rust persistence_metadata.rs carries (name, version,
// created_at, modified_at, tags).
type Metadata struct {
	Name       string    `json:"name,omitempty"`
	Version    string    `json:"version,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Tags       []string  `json:"tags,omitempty"`
}

// envelope is the on-the-wire JSON shape. Context is stored base64-encoded
// so it can hold either plain JSON bytes or zstd-compressed bytes
// uniformly; Compressed records which.
type envelope struct {
	FormatVersion int                  `json:"format_version"`
	MachineID     statecore.MachineId  `json:"machine_id"`
	Value         statecore.StateValue `json:"value"`
	Context       string               `json:"context"`
	Compressed    bool                 `json:"compressed,omitempty"`
	Metadata      Metadata             `json:"metadata"`
}

var (
	sharedEncoder *zstd.Encoder
	sharedDecoder *zstd.Decoder
)

func init() {
	sharedEncoder, _ = zstd.NewWriter(nil)
	sharedDecoder, _ = zstd.NewReader(nil)
}

// encode serializes a MachineState into an envelope's bytes, compressing
// the context blob when level > 0 (spec.md's compression_level:0..=9
// option; 0 means disabled).
func encode(machineID statecore.MachineId, s statecore.MachineState, meta Metadata, compressionLevel int) ([]byte, error) {
	ctxBytes, err := json.Marshal(s.Context)
	if err != nil {
		return nil, serializationError(err.Error())
	}

	compressed := false
	if compressionLevel > 0 {
		ctxBytes = sharedEncoder.EncodeAll(ctxBytes, nil)
		compressed = true
	}

	env := envelope{
		FormatVersion: FormatVersion,
		MachineID:     machineID,
		Value:         s.Value,
		Context:       base64.StdEncoding.EncodeToString(ctxBytes),
		Compressed:    compressed,
		Metadata:      meta,
	}
	return json.Marshal(env)
}

// decode is the inverse of encode. ctxOut receives the decoded context
// value: pass a pointer matching the host's context shape, or *any to
// get back a generic map[string]interface{}.
func decode(data []byte, ctxOut any) (statecore.MachineId, statecore.StateValue, Metadata, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", statecore.StateValue{}, Metadata{}, deserializationError(err.Error())
	}
	if env.FormatVersion != FormatVersion {
		return "", statecore.StateValue{}, Metadata{}, versionError(env.FormatVersion, FormatVersion)
	}

	ctxBytes, err := base64.StdEncoding.DecodeString(env.Context)
	if err != nil {
		return "", statecore.StateValue{}, Metadata{}, deserializationError(err.Error())
	}
	if env.Compressed {
		ctxBytes, err = sharedDecoder.DecodeAll(ctxBytes, nil)
		if err != nil {
			return "", statecore.StateValue{}, Metadata{}, deserializationError(err.Error())
		}
	}
	if err := json.Unmarshal(ctxBytes, ctxOut); err != nil {
		return "", statecore.StateValue{}, Metadata{}, deserializationError(err.Error())
	}

	return env.MachineID, env.Value, env.Metadata, nil
}
