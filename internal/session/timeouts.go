package session

import "time"

// pakeDeadline bounds the relay pairing wait plus the full PAKE
// exchange (spec.md §5 "PAKE completion: 30 s" and §8 scenario 3: a
// sender whose receiver never arrives must time out rather than block
// forever on the relay's unrelated, much longer read timeout).
const pakeDeadline = 30 * time.Second
