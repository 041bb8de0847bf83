// Copyright (C) 2019-2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/luxfi/tower/record"
)

const (
	WalFlags       = os.O_APPEND | os.O_CREATE | os.O_RDWR
	WalPermissions = 0600
)

// WriteAheadLog is a vote log kept in a single file of record frames.
type WriteAheadLog struct {
	file *os.File
}

// New opens a write ahead log file, creating one if necessary.
// Call Close() on the WriteAheadLog to ensure the file is closed after use.
func New(fileName string) (*WriteAheadLog, error) {
	file, err := os.OpenFile(fileName, WalFlags, WalPermissions)
	if err != nil {
		return nil, err
	}

	return &WriteAheadLog{
		file: file,
	}, nil
}

// Append appends a record to the write ahead log.
// The OS cache is flushed on every append, the record is durable once Append returns nil.
func (w *WriteAheadLog) Append(r record.Record) error {
	if _, err := w.file.Write(r.Bytes()); err != nil {
		return err
	}

	return w.file.Sync()
}

// ReadAll returns every record of the log in append order.
// A last record that was only partially written is cut off the log.
// Damage anywhere else is reported, not repaired.
func (w *WriteAheadLog) ReadAll() ([]record.Record, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to start %w", err)
	}

	fileInfo, err := w.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("error getting file info %w", err)
	}
	size := fileInfo.Size()

	in := bufio.NewReader(w.file)
	var records []record.Record
	for offset := int64(0); offset < size; {
		remaining := size - offset
		r, n, err := record.Read(in, remaining)
		switch {
		case err == nil:
		case errors.Is(err, record.ErrTorn), errors.Is(err, record.ErrInvalidCRC) && int64(n) == remaining:
			return records, w.truncateAt(offset)
		default:
			return nil, fmt.Errorf("record at offset %d: %w", offset, err)
		}

		offset += int64(n)
		records = append(records, r)
	}

	return records, nil
}

// Truncate truncates the write ahead log
func (w *WriteAheadLog) Truncate() error {
	return w.truncateAt(0)
}

func (w *WriteAheadLog) truncateAt(offset int64) error {
	// truncate call is atomic. Ref https://cgi.cse.unsw.edu.au/~cs3231/18s1/os161/man/syscall/ftruncate.html
	err := w.file.Truncate(offset)
	if err != nil {
		return err
	}

	return w.file.Sync()
}

func (w *WriteAheadLog) Close() error {
	return w.file.Close()
}
