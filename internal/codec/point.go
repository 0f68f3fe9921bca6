package codec

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/pathrecorder/pkg/core"
)

type pointStampedDoc struct {
	Header *headerDoc `json:"header"`
	Point  *pointDoc  `json:"point"`
}

// UnmarshalPointStamped decodes {"header": {...}, "point": {"x","y","z"}}.
// The header may be omitted, in which case ok is false and the returned header
// is zero. A header that is present must be complete.
func UnmarshalPointStamped(data []byte) (p core.PointStamped, ok bool, err error) {
	var doc pointStampedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.PointStamped{}, false, fmt.Errorf("%w: %w", core.ErrDecode, err)
	}
	if doc.Header != nil {
		p.Header, err = headerFromDoc(doc.Header, "header")
		if err != nil {
			return core.PointStamped{}, false, err
		}
		ok = true
	}
	if doc.Point == nil {
		return core.PointStamped{}, false, missing("point")
	}
	for _, f := range []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"point.x", doc.Point.X, &p.Point.X},
		{"point.y", doc.Point.Y, &p.Point.Y},
		{"point.z", doc.Point.Z, &p.Point.Z},
	} {
		if f.src == nil {
			return core.PointStamped{}, false, missing(f.name)
		}
		*f.dst = *f.src
	}
	return p, ok, nil
}
