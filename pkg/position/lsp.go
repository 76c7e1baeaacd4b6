package position

import (
	"go.lsp.dev/protocol"
)

func (p Place) Protocol() protocol.Position {
	return protocol.Position{Line: uint32(max(p.Line, 0)), Character: uint32(max(p.Character, 0))}
}

func (r PlaceRange) Protocol() protocol.Range {
	return protocol.Range{Start: r.Start.Protocol(), End: r.End.Protocol()}
}

// FromProtocol converts a client position into a Place.
func FromProtocol(p protocol.Position) Place {
	return Place{Line: int(p.Line), Character: int(p.Character)}
}
