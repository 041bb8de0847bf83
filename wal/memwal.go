// Copyright (C) 2019-2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wal

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/luxfi/tower/record"
)

// InMemWAL is a vote log kept in memory, holding the same frames as the
// file based log.
type InMemWAL struct {
	lock sync.Mutex
	bb   bytes.Buffer
}

func NewMemWAL() *InMemWAL {
	return &InMemWAL{}
}

func (wal *InMemWAL) Append(r record.Record) error {
	wal.lock.Lock()
	defer wal.lock.Unlock()

	_, err := wal.bb.Write(r.Bytes())
	return err
}

func (wal *InMemWAL) ReadAll() ([]record.Record, error) {
	wal.lock.Lock()
	defer wal.lock.Unlock()

	in := bytes.NewReader(wal.bb.Bytes())
	var res []record.Record
	for in.Len() > 0 {
		r, _, err := record.Read(in, int64(in.Len()))
		if err != nil {
			return nil, fmt.Errorf("failed reading in-memory record: %w", err)
		}
		res = append(res, r)
	}
	return res, nil
}

func (wal *InMemWAL) Truncate() error {
	wal.lock.Lock()
	defer wal.lock.Unlock()

	wal.bb.Reset()
	return nil
}
