package badger

import "encoding/binary"

// Key families. Fixed-width numeric segments are encoded big-endian with
// the sign bit flipped so lexicographic key order matches numeric order;
// variable-width segments are escaped and terminated with ':'. The event
// id always sits last, needs no terminator, and keeps index keys unique.
//
//	e:<id>                                          event body
//	k:<kind>:<created>:<id>                         kind index
//	p:<pubkey>:<created>:<id>                       author index
//	pk:<pubkey>:<kind>:<created>:<id>               author+kind index
//	pkd:<pubkey>:<kind>:<dtag>:<created>:<id>       author+kind+dtag index
//	c:<created>:<id>                                created_at index
//	r:<url>                                         relay body
//	i:<key::type>                                   info body
//	n:<id>                                          notification body
//	nt:<timestamp>:<id>                             notification time index
//	o:<url>                                         observed relay body
//	m:<pubkey>:<url>                                relay mapping body
const (
	prefixEvent        = "e:"
	prefixKind         = "k:"
	prefixAuthor       = "p:"
	prefixAuthorKind   = "pk:"
	prefixAuthorKindD  = "pkd:"
	prefixCreated      = "c:"
	prefixRelay        = "r:"
	prefixInfo         = "i:"
	prefixNotification = "n:"
	prefixNotifTime    = "nt:"
	prefixObserved     = "o:"
	prefixMapping      = "m:"
)

// escapeKeyPart makes a variable-width key segment safe to terminate with
// ':' by escaping the separator and the escape character itself.
func escapeKeyPart(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			out = append(out, '\\', '\\')
		case ':':
			out = append(out, '\\', ':')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

// encodeInt64 encodes v so that byte order equals numeric order for the
// whole int64 range.
func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v)^(1<<63))
	return b
}

// decodeInt64 reverses encodeInt64.
func decodeInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

func eventKey(id string) []byte {
	return append([]byte(prefixEvent), id...)
}

func kindPrefix(kind int) []byte {
	b := append([]byte(prefixKind), encodeInt64(int64(kind))...)
	return append(b, ':')
}

func kindKey(kind int, createdAt int64, id string) []byte {
	b := append(kindPrefix(kind), encodeInt64(createdAt)...)
	b = append(b, ':')
	return append(b, id...)
}

func authorPrefix(pubkey string) []byte {
	b := append([]byte(prefixAuthor), escapeKeyPart(pubkey)...)
	return append(b, ':')
}

func authorKey(pubkey string, createdAt int64, id string) []byte {
	b := append(authorPrefix(pubkey), encodeInt64(createdAt)...)
	b = append(b, ':')
	return append(b, id...)
}

func authorKindPrefix(pubkey string, kind int) []byte {
	b := append([]byte(prefixAuthorKind), escapeKeyPart(pubkey)...)
	b = append(b, ':')
	b = append(b, encodeInt64(int64(kind))...)
	return append(b, ':')
}

func authorKindKey(pubkey string, kind int, createdAt int64, id string) []byte {
	b := append(authorKindPrefix(pubkey, kind), encodeInt64(createdAt)...)
	b = append(b, ':')
	return append(b, id...)
}

func authorKindDTagPrefix(pubkey string, kind int, dTag string) []byte {
	b := append([]byte(prefixAuthorKindD), escapeKeyPart(pubkey)...)
	b = append(b, ':')
	b = append(b, encodeInt64(int64(kind))...)
	b = append(b, ':')
	b = append(b, escapeKeyPart(dTag)...)
	return append(b, ':')
}

func authorKindDTagKey(pubkey string, kind int, dTag string, createdAt int64, id string) []byte {
	b := append(authorKindDTagPrefix(pubkey, kind, dTag), encodeInt64(createdAt)...)
	b = append(b, ':')
	return append(b, id...)
}

func createdSeekKey(since int64) []byte {
	b := append([]byte(prefixCreated), encodeInt64(since)...)
	return append(b, ':')
}

func createdKey(createdAt int64, id string) []byte {
	return append(createdSeekKey(createdAt), id...)
}

// createdAtFromKey extracts the timestamp segment of a created_at index key.
func createdAtFromKey(k []byte) int64 {
	start := len(prefixCreated)
	if len(k) < start+8 {
		return 0
	}
	return decodeInt64(k[start : start+8])
}

func relayKey(url string) []byte {
	return append([]byte(prefixRelay), url...)
}

func infoKey(composite string) []byte {
	return append([]byte(prefixInfo), composite...)
}

func notificationKey(id string) []byte {
	return append([]byte(prefixNotification), id...)
}

func notifTimeSeekKey(since int64) []byte {
	b := append([]byte(prefixNotifTime), encodeInt64(since)...)
	return append(b, ':')
}

func notifTimeKey(timestamp int64, id string) []byte {
	return append(notifTimeSeekKey(timestamp), id...)
}

func observedKey(url string) []byte {
	return append([]byte(prefixObserved), url...)
}

func mappingPrefix(pubkey string) []byte {
	b := append([]byte(prefixMapping), escapeKeyPart(pubkey)...)
	return append(b, ':')
}

func mappingKey(pubkey, url string) []byte {
	return append(mappingPrefix(pubkey), escapeKeyPart(url)...)
}
