package analyse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"study_eval/internal/errors"
)

// Ply is a half-move number, or false when nothing on the mainline is selected.
type Ply struct {
	n  int
	ok bool
}

// NoPly is the "false" ply.
var NoPly = Ply{}

func PlyOf(n int) Ply {
	return Ply{n: n, ok: true}
}

// Int returns the ply number and whether it is set.
func (p Ply) Int() (int, bool) {
	return p.n, p.ok
}

func (p Ply) IsNone() bool {
	return !p.ok
}

func (p Ply) String() string {
	if !p.ok {
		return "false"
	}
	return strconv.Itoa(p.n)
}

func (p Ply) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Ply) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("false")) {
		*p = NoPly
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidPly, string(b))
	}
	*p = PlyOf(n)
	return nil
}

// MainlinePly is the ply carried by a position change. An undefined value
// keeps whatever ply was last selected.
type MainlinePly struct {
	Ply     Ply
	Defined bool
}

func Mainline(p Ply) MainlinePly {
	return MainlinePly{Ply: p, Defined: true}
}

func Undefined() MainlinePly {
	return MainlinePly{}
}

func (m MainlinePly) MarshalJSON() ([]byte, error) {
	if !m.Defined {
		return []byte("null"), nil
	}
	return m.Ply.MarshalJSON()
}

func (m *MainlinePly) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*m = Undefined()
		return nil
	}
	var p Ply
	if err := p.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = Mainline(p)
	return nil
}

// PositionChange is published every time the displayed position moves.
type PositionChange struct {
	Fen         string      `json:"fen"`
	Path        string      `json:"path"`
	MainlinePly MainlinePly `json:"mainline_ply"`
}
