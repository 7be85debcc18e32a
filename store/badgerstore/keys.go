package badgerstore

import (
	"fmt"
	"strings"

	"github.com/Fred-dee/spatial"
)

// Key prefixes, mirroring the key_encoding.go convention of one short
// prefix per entity kind so a single Badger keyspace can hold nodes,
// forward edges, reverse edges, and properties side by side.
const (
	prefixNode     = "n:"
	prefixEdge     = "e:"
	prefixRevEdge  = "r:"
	prefixProperty = "p:"
)

// encodeNodeKey encodes a node's own existence marker.
// Format: n:{id}
func encodeNodeKey(id spatial.NodeID) []byte {
	return []byte(prefixNode + string(id))
}

// encodeEdgeKey encodes a forward edge. Format: e:{kind}:{from}:{to}
func encodeEdgeKey(kind spatial.EdgeKind, from, to spatial.NodeID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", prefixEdge, kind, from, to))
}

// encodeEdgePrefix encodes the prefix for scanning from's outgoing
// edges of kind. Format: e:{kind}:{from}:
func encodeEdgePrefix(kind spatial.EdgeKind, from spatial.NodeID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", prefixEdge, kind, from))
}

// encodeRevEdgeKey encodes the reverse index entry for a forward edge,
// so Incoming() doesn't need a full scan. Format: r:{kind}:{to}:{from}
func encodeRevEdgeKey(kind spatial.EdgeKind, from, to spatial.NodeID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", prefixRevEdge, kind, to, from))
}

// encodeRevEdgePrefix encodes the prefix for scanning to's incoming
// edges of kind. Format: r:{kind}:{to}:
func encodeRevEdgePrefix(kind spatial.EdgeKind, to spatial.NodeID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", prefixRevEdge, kind, to))
}

// encodePropertyKey encodes a node property. Format: p:{id}:{prop}
func encodePropertyKey(id spatial.NodeID, prop string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixProperty, id, prop))
}

// decodeTrailingID extracts the node id following the last ':' in a
// forward- or reverse-edge key, as produced by an edge-prefix scan.
func decodeTrailingID(key []byte) spatial.NodeID {
	s := string(key)
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return spatial.NodeID(s)
	}
	return spatial.NodeID(s[i+1:])
}
