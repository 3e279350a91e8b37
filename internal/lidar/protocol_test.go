package lidar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCRC16CCITT_ReferenceVector checks the CRC against a known
// reference computation for a zero-payload command 0 request's header
// bytes.
func TestCRC16CCITT_ReferenceVector(t *testing.T) {
	data := []byte{0xAA, 0x40, 0x00, 0x00}

	got := crc16CCITT(data)

	// Recompute independently via the textbook bit-by-bit CRC-16
	// (polynomial 0x1021, seed 0, no reflection: CRC-16/XMODEM)
	// rather than hardcoding a magic constant.
	want := referenceCRC(data)
	assert.Equal(t, want, got)
}

func referenceCRC(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func TestBuildAndParsePacket_RoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		command byte
		write   bool
		data    []byte
	}{
		{"no payload", 0, false, nil},
		{"write with payload", 66, true, []byte{5}},
		{"multi-byte payload", 98, true, []byte{0x00, 0x00, 0x88, 0xC2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			packet := buildPacket(tc.command, tc.write, tc.data)

			p := newPacketParser()
			var result []byte
			var ok bool
			for _, b := range packet {
				result, ok = p.feed(b)
			}
			require.True(t, ok, "packet should parse completely")
			assert.Equal(t, tc.command, parsedCommand(result))
		})
	}
}

func TestPacketParser_RobustToNoise(t *testing.T) {
	p := newPacketParser()

	valid1 := buildPacket(44, false, []byte{1, 2, 3, 4})
	valid2 := buildPacket(66, true, []byte{7})

	stream := append([]byte{0x00, 0xFF, 0x12}, valid1...)
	stream = append(stream, 0x01, 0xAB, 0xCD)
	stream = append(stream, valid2...)
	stream = append(stream, 0xAA, 0x00) // trailing partial packet, never completes

	var completed [][]byte
	for _, b := range stream {
		if packet, ok := p.feed(b); ok {
			completed = append(completed, packet)
		}
	}

	require.Len(t, completed, 2)
	assert.Equal(t, byte(44), parsedCommand(completed[0]))
	assert.Equal(t, byte(66), parsedCommand(completed[1]))
}

func TestPacketParser_RejectsBadCRC(t *testing.T) {
	p := newPacketParser()
	packet := buildPacket(44, false, []byte{1, 2, 3, 4})
	packet[len(packet)-1] ^= 0xFF // corrupt CRC high byte

	var gotOK bool
	for _, b := range packet {
		if _, ok := p.feed(b); ok {
			gotOK = true
		}
	}
	assert.False(t, gotOK, "corrupted CRC must not yield a completed packet")
}

func TestPacketParser_RejectsOversizedPayload(t *testing.T) {
	p := newPacketParser()

	// flags encode payload_length = 1020, exceeding the 1019 cap.
	flags := uint16(1020 << 6)
	p.feed(0xAA)
	p.feed(byte(flags & 0xFF))
	_, ok := p.feed(byte(flags >> 8))

	assert.False(t, ok)
	assert.Equal(t, stateWaitSync, p.state, "parser must reset to sync state on oversized payload")
}

func TestDecodeDistancePacket_ValidReading(t *testing.T) {
	// distance = 12.34m -> raw 1234 centihundredths... actually cm: 1234 cm = 12.34m
	packet := buildPacket(cmdDistance, false, []byte{
		byte(1234 & 0xFF), byte(1234 >> 8), // distance raw (cm)
		byte(350 & 0xFF), byte(350 >> 8), // angle raw (hundredths of a degree) = 3.50 deg
	})

	d, ok := decodeDistancePacket(packet)
	require.True(t, ok)
	assert.InDelta(t, 12.34, d.Distance, 1e-9)
	assert.InDelta(t, 3.50, d.Angle, 1e-9)
}

func TestDecodeDistancePacket_NegativeAngleSignExtension(t *testing.T) {
	// raw angle 64500 represents a negative angle: 64500 - 65535 = -1035 -> /100 = -10.35 deg
	rawAngle := 64500
	packet := buildPacket(cmdDistance, false, []byte{
		byte(100 & 0xFF), byte(100 >> 8),
		byte(rawAngle & 0xFF), byte(rawAngle >> 8),
	})

	d, ok := decodeDistancePacket(packet)
	require.True(t, ok)
	assert.InDelta(t, -10.35, d.Angle, 1e-9)
}

func TestDecodeDistancePacket_OutOfRangeDiscarded(t *testing.T) {
	// distance = 60m, exceeds the 50m domain bound.
	packet := buildPacket(cmdDistance, false, []byte{
		byte(6000 & 0xFF), byte(6000 >> 8),
		0, 0,
	})

	_, ok := decodeDistancePacket(packet)
	assert.False(t, ok)
}
