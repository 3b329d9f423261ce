package codec

import "encoding/json"

// Control message kinds, spec.md §6.1. Relay control messages are
// textual tagged-union records; encoding/json is the direct reading of
// "textual" and matches the teacher's own JSON usage for its
// quorum/peers configuration files (cmd/bdlsnode/main.go).
const (
	KindJoin    = "join"
	KindJoinAck = "join-ack"
	KindPaired  = "paired"
	KindLeave   = "leave"
)

// Role identifies which side of a transfer a peer is joining as.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// JoinAck status values, spec.md §6.1.
const (
	StatusOK             = "ok"
	StatusNameInUse      = "name-in-use"
	StatusNoSuchTransfer = "no-such-transfer"
	StatusAlreadyPaired  = "already-paired"
)

// Control is the envelope every relay control message is wrapped in.
// Which of the other fields are populated depends on Kind: Role and
// Name for a join, Status for a join-ack, none for paired and leave.
type Control struct {
	Kind string `json:"kind"`
	Role Role   `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}

// EncodeJoin builds the textual Join{role, name} control message.
func EncodeJoin(role Role, name string) ([]byte, error) {
	return json.Marshal(Control{Kind: KindJoin, Role: role, Name: name})
}

// EncodeJoinAck builds the textual JoinAck{status} control message.
func EncodeJoinAck(status string) ([]byte, error) {
	return json.Marshal(Control{Kind: KindJoinAck, Status: status})
}

// EncodePaired builds the textual Paired{} control message.
func EncodePaired() ([]byte, error) {
	return json.Marshal(Control{Kind: KindPaired})
}

// EncodeLeave builds the textual Leave{} control message.
func EncodeLeave() ([]byte, error) {
	return json.Marshal(Control{Kind: KindLeave})
}

// DecodeControl parses a textual control message envelope.
func DecodeControl(raw []byte) (Control, error) {
	var c Control
	if err := json.Unmarshal(raw, &c); err != nil {
		return Control{}, ErrMalformedFrame
	}
	switch c.Kind {
	case KindJoin:
		if c.Name == "" || (c.Role != RoleSender && c.Role != RoleReceiver) {
			return Control{}, ErrMalformedFrame
		}
	case KindJoinAck:
		if c.Status == "" {
			return Control{}, ErrMalformedFrame
		}
	case KindPaired, KindLeave:
		// no required fields
	default:
		return Control{}, ErrMalformedFrame
	}
	return c, nil
}
