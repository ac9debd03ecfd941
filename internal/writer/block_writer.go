// internal/writer/block_writer.go
package writer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tamzrod/battery-monitor/internal/status"
)

// blockWriter delivers one device block into one target.
// It receives a snapshot and writes it verbatim.
type blockWriter struct {
	target Target
	cli    RegisterWriter

	needFull bool
	last     []uint16
}

func newBlockWriter(t Target, cli RegisterWriter) *blockWriter {
	return &blockWriter{
		target:   t,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
	}
}

// WriteStatus delivers a snapshot into the target block.
// On any write failure, the next call re-asserts the full block.
// An identity change also re-asserts the full block.
func (bw *blockWriter) WriteStatus(s status.Snapshot) error {
	if bw.cli == nil {
		return fmt.Errorf("block writer: missing client for endpoint %s", bw.target.Endpoint)
	}

	regs := status.Encode(s)
	baseAddr := bw.baseAddr()
	unitID := bw.target.UnitID

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if bw.needFull || !slices.Equal(bw.last[status.LiveSlots:], regs[status.LiveSlots:]) {
		if err := bw.cli.WriteRegisters(unitID, baseAddr, regs); err != nil {
			bw.needFull = true
			return fmt.Errorf("block writer: full block write failed ep=%s unit=%d addr=%d: %w",
				bw.target.Endpoint, unitID, baseAddr, err)
		}

		bw.needFull = false
		bw.last = regs
		return nil
	}

	var errs []string

	for slot := 0; slot < status.LiveSlots; slot++ {
		if bw.last[slot] == regs[slot] {
			continue
		}
		if err := bw.cli.WriteRegisters(
			unitID,
			baseAddr+uint16(slot),
			[]uint16{regs[slot]},
		); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d write failed: %v", slot, err))
		} else {
			bw.last[slot] = regs[slot]
		}
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next call.
		bw.needFull = true
		return fmt.Errorf("block writer ep=%s unit=%d: %s",
			bw.target.Endpoint, unitID, strings.Join(errs, " | "))
	}

	return nil
}

func (bw *blockWriter) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return bw.target.BaseSlot * status.SlotsPerDevice
}
