// Package discovery turns raw program logs into trade candidates.
package discovery

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/mr-tron/base58"
)

// CreateEvent is a decoded curve-creation event emitted by the venue
// program when a new token launches.
type CreateEvent struct {
	Name         string
	Symbol       string
	URI          string
	Mint         string
	BondingCurve string
	Creator      string
}

// createEventDiscriminator is the 8-byte anchor event tag for CreateEvent.
var createEventDiscriminator = []byte{0x1b, 0x72, 0xa9, 0x4d, 0xde, 0xeb, 0x63, 0x76}

const programDataPrefix = "Program data: "

// ParseCreateEvent scans transaction logs for a curve-creation event.
// Returns nil when the logs carry none.
func ParseCreateEvent(logs []string) *CreateEvent {
	for _, line := range logs {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, programDataPrefix))
		if err != nil {
			continue
		}
		if len(raw) < 8 || !bytes.Equal(raw[:8], createEventDiscriminator) {
			continue
		}

		if ev := decodeCreateEvent(raw[8:]); ev != nil {
			return ev
		}
	}
	return nil
}

// decodeCreateEvent reads the borsh layout:
// name string, symbol string, uri string, mint pubkey, bonding_curve pubkey, user pubkey.
func decodeCreateEvent(data []byte) *CreateEvent {
	ev := &CreateEvent{}
	var ok bool

	if ev.Name, data, ok = readString(data); !ok {
		return nil
	}
	if ev.Symbol, data, ok = readString(data); !ok {
		return nil
	}
	if ev.URI, data, ok = readString(data); !ok {
		return nil
	}
	if ev.Mint, data, ok = readPubkey(data); !ok {
		return nil
	}
	if ev.BondingCurve, data, ok = readPubkey(data); !ok {
		return nil
	}
	if ev.Creator, _, ok = readPubkey(data); !ok {
		return nil
	}

	return ev
}

// readString reads a u32-length-prefixed borsh string.
func readString(data []byte) (string, []byte, bool) {
	if len(data) < 4 {
		return "", nil, false
	}
	n := binary.LittleEndian.Uint32(data)
	data = data[4:]
	if uint32(len(data)) < n {
		return "", nil, false
	}
	return string(data[:n]), data[n:], true
}

// readPubkey reads a 32-byte key and encodes it base58.
func readPubkey(data []byte) (string, []byte, bool) {
	if len(data) < 32 {
		return "", nil, false
	}
	return base58.Encode(data[:32]), data[32:], true
}
