// Copyright (C) 2019-2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc64"
	"io"
)

const (
	recordVersionLen  = 1
	recordTypeLen     = 2
	recordSizeLen     = 4
	recordChecksumLen = 8

	recordHeaderLen = recordVersionLen + recordTypeLen + recordSizeLen

	recordVersionIndex  = 0
	recordTypeOffset    = recordVersionIndex + recordVersionLen
	recordSizeOffset    = recordTypeOffset + recordTypeLen
	recordPayloadOffset = recordSizeOffset + recordSizeLen

	// MinFrameLen is the size of the frame of a record with an empty payload.
	MinFrameLen = recordHeaderLen + recordChecksumLen

	maxPayloadSize = 1_000_000
)

var (
	// ErrTorn is returned for a frame that ends before its checksum,
	// as left behind by an interrupted append.
	ErrTorn       = errors.New("torn record")
	ErrInvalidCRC = errors.New("invalid CRC checksum")
	ErrMalformed  = errors.New("malformed record")
)

var crcTable = crc64.MakeTable(crc64.ECMA)

// Record is a typed entry of the vote log. It is framed as version, type,
// payload length, payload and a CRC over all of them.
type Record struct {
	Version uint8
	Type    uint16
	Payload []byte
}

// Bytes returns the frame of the record.
func (r *Record) Bytes() []byte {
	payloadLen := len(r.Payload)
	checksumOffset := recordPayloadOffset + payloadLen
	buff := make([]byte, checksumOffset+recordChecksumLen)

	buff[recordVersionIndex] = r.Version
	binary.BigEndian.PutUint16(buff[recordTypeOffset:], r.Type)
	binary.BigEndian.PutUint32(buff[recordSizeOffset:], uint32(payloadLen))
	copy(buff[recordPayloadOffset:], r.Payload)
	binary.BigEndian.PutUint64(buff[checksumOffset:], crc64.Checksum(buff[:checksumOffset], crcTable))

	return buff
}

// Read reads the next frame from in. remaining bounds the size of the frame,
// a frame claiming more is treated as torn. The size of the frame is returned,
// also along with ErrInvalidCRC.
func Read(in io.Reader, remaining int64) (Record, int, error) {
	header := make([]byte, recordHeaderLen)
	if _, err := io.ReadFull(in, header); err != nil {
		return Record{}, 0, tornOr(err)
	}

	payloadLen := binary.BigEndian.Uint32(header[recordSizeOffset:])
	if payloadLen > maxPayloadSize {
		return Record{}, 0, fmt.Errorf("%w: record indicates payload is %d bytes long", ErrMalformed, payloadLen)
	}
	frameLen := MinFrameLen + int(payloadLen)
	if int64(frameLen) > remaining {
		return Record{}, 0, fmt.Errorf("%w: frame of %d bytes with %d bytes left", ErrTorn, frameLen, remaining)
	}

	rest := make([]byte, int(payloadLen)+recordChecksumLen)
	if _, err := io.ReadFull(in, rest); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, 0, tornOr(err)
	}
	payload := rest[:payloadLen]

	crc := crc64.Update(0, crcTable, header)
	crc = crc64.Update(crc, crcTable, payload)
	if crc != binary.BigEndian.Uint64(rest[payloadLen:]) {
		return Record{}, frameLen, ErrInvalidCRC
	}

	return Record{
		Version: header[recordVersionIndex],
		Type:    binary.BigEndian.Uint16(header[recordTypeOffset:]),
		Payload: payload,
	}, frameLen, nil
}

func tornOr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTorn, err)
	}
	return err
}
