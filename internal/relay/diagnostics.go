package relay

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

func stateLabel(s RoomState) string {
	switch s {
	case StatePendingReceiver:
		return "pending-receiver"
	case StatePaired:
		return "paired"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DebugTable renders the registry's active rooms as a text table, for
// operator diagnostics (no part of the wire protocol).
func (reg *Registry) DebugTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "State"})
	for _, room := range reg.Rooms() {
		table.Append([]string{room.Name(), stateLabel(room.State())})
	}
	table.Render()
}
