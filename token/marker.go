package token

import (
	"fmt"
	"strings"
)

// Marker identifies a structural postfix marker
type Marker int

const (
	MarkerNone       Marker = iota
	MarkerIfCond            // УПЛ: pop condition, open if block
	MarkerCtrlFlow          // УЦ: while header, for close or block close depending on context
	MarkerAccess            // АЭМ: array element access, preceded by arity
	MarkerForCond           // tagged for-loop header
	MarkerWhileClose        // tagged while close
	MarkerForClose          // tagged for close
	MarkerBlockClose        // tagged if close
)

// Surface selects the spelling used when markers are written out
type Surface string

const (
	SurfaceCyrillic Surface = "cyrillic"
	SurfaceLatin    Surface = "latin"
)

// ParseSurface parses a surface name; empty means Cyrillic
func ParseSurface(s string) (Surface, error) {
	switch Surface(strings.ToLower(strings.TrimSpace(s))) {
	case "", SurfaceCyrillic:
		return SurfaceCyrillic, nil
	case SurfaceLatin:
		return SurfaceLatin, nil
	}
	return "", fmt.Errorf("unknown marker surface %q (want cyrillic or latin)", s)
}

const (
	IfCondCyrillic   = "УПЛ"
	CtrlFlowCyrillic = "УЦ"
	AccessCyrillic   = "АЭМ"
)

type markerSpelling struct {
	cyrillic string
	latin    string
}

var markerSpellings = map[Marker]markerSpelling{
	MarkerIfCond:     {cyrillic: IfCondCyrillic, latin: "IF_COND"},
	MarkerCtrlFlow:   {cyrillic: CtrlFlowCyrillic, latin: "CTRL_FLOW"},
	MarkerAccess:     {cyrillic: AccessCyrillic, latin: "ACCESS"},
	MarkerForCond:    {cyrillic: "УЦП", latin: "FOR_COND"},
	MarkerWhileClose: {cyrillic: "КЦ", latin: "WHILE_CLOSE"},
	MarkerForClose:   {cyrillic: "КЦП", latin: "FOR_CLOSE"},
	MarkerBlockClose: {cyrillic: "КБ", latin: "BLOCK_CLOSE"},
}

var markersBySurface = func() map[string]Marker {
	m := make(map[string]Marker, len(markerSpellings)*2)
	for marker, s := range markerSpellings {
		m[s.cyrillic] = marker
		m[s.latin] = marker
	}
	return m
}()

// Surface returns the spelling of the marker
func (m Marker) Surface(s Surface) string {
	sp, ok := markerSpellings[m]
	if !ok {
		return ""
	}
	if s == SurfaceLatin {
		return sp.latin
	}
	return sp.cyrillic
}

// String returns the Latin name of the marker
func (m Marker) String() string {
	if sp, ok := markerSpellings[m]; ok {
		return sp.latin
	}
	return "NONE"
}

// IsCloser reports whether the marker only ever closes a block
func (m Marker) IsCloser() bool {
	return m == MarkerWhileClose || m == MarkerForClose || m == MarkerBlockClose
}

// LookupMarker resolves either spelling of a marker
func LookupMarker(text string) (Marker, bool) {
	m, ok := markersBySurface[text]
	return m, ok
}
