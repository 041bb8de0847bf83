// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tower

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// WriteTable renders the given votes newest first.
func WriteTable(w io.Writer, entries []EntryView) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Slot", "Level", "Lockout", "Expiration Slot"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		table.Append([]string{
			strconv.FormatUint(e.Slot, 10),
			strconv.FormatUint(uint64(e.Lockout), 10),
			strconv.FormatUint(e.LockoutDuration, 10),
			strconv.FormatUint(e.ExpirationSlot, 10),
		})
	}
	table.Render()
}
