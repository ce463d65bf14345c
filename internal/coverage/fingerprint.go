package coverage

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/jengzang/streetscore-go/internal/streetgraph"
)

// Fingerprint identifies everything a coverage record was computed from: the
// encoded track, the flagged policy, the threshold and the graph. Equal
// fingerprints mean matching again would produce the same record.
func (m *Matcher) Fingerprint(polyline string, flagged bool, g *streetgraph.Graph) string {
	h := sha256.New()
	h.Write([]byte(polyline))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(flagged)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(m.ThresholdM, 'f', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(g.Len())))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(g.TotalLengthM(), 'f', 3, 64)))
	return hex.EncodeToString(h.Sum(nil))
}
