package dict

import (
	"encoding/binary"
	"fmt"
	"os"
)

// LXCX on-disk layout:
//
//	[4B magic "LXCX"][1B version][rows:u32][cols:u32]
//	[i16 row-major cost matrix][1B role per row id]
//
// All integers are little-endian. The role sideband classifies each POS id
// so the reranker and phrase grouping can run without a full POS table.
const (
	connMagic   = "LXCX"
	connVersion = 1

	connHeaderSize = 4 + 1 + 4 + 4
)

// Role classifies a POS id for phrase grouping and reranking.
type Role uint8

const (
	RoleContent Role = iota
	RoleFunction
	RoleSuffix
	RolePrefix
	RoleNonIndependent
	RolePronoun
)

// ConnectionMatrix holds (left_id, right_id) → transition cost plus the
// per-id role sideband. Immutable after load.
type ConnectionMatrix struct {
	rows  int
	cols  int
	costs []int16
	roles []Role
}

// NewConnectionMatrix builds an owned matrix. roles is padded with
// RoleContent to rows length if shorter.
func NewConnectionMatrix(rows, cols int, roles []Role, costs []int16) *ConnectionMatrix {
	rs := make([]Role, rows)
	copy(rs, roles)
	cs := make([]int16, rows*cols)
	copy(cs, costs)
	return &ConnectionMatrix{rows: rows, cols: cols, costs: cs, roles: rs}
}

// Cost returns the transition cost for (left_id, right_id).
// Out-of-range ids cost 0.
func (m *ConnectionMatrix) Cost(leftID, rightID uint16) int16 {
	l, r := int(leftID), int(rightID)
	if l >= m.rows || r >= m.cols {
		return 0
	}
	return m.costs[l*m.cols+r]
}

// Role returns the role for a POS id, RoleContent for out-of-range ids.
func (m *ConnectionMatrix) Role(id uint16) Role {
	if int(id) >= len(m.roles) {
		return RoleContent
	}
	return m.roles[id]
}

// IsFunctionWord reports whether the id is a particle or auxiliary.
func (m *ConnectionMatrix) IsFunctionWord(id uint16) bool { return m.Role(id) == RoleFunction }

// IsSuffix reports whether the id is a suffix morpheme.
func (m *ConnectionMatrix) IsSuffix(id uint16) bool { return m.Role(id) == RoleSuffix }

// IsPrefix reports whether the id is a prefix morpheme.
func (m *ConnectionMatrix) IsPrefix(id uint16) bool { return m.Role(id) == RolePrefix }

// IsNonIndependent reports whether the id is a non-independent morpheme
// (formal noun or auxiliary verb stem).
func (m *ConnectionMatrix) IsNonIndependent(id uint16) bool { return m.Role(id) == RoleNonIndependent }

// IsPronoun reports whether the id is a pronoun.
func (m *ConnectionMatrix) IsPronoun(id uint16) bool { return m.Role(id) == RolePronoun }

// Rows returns the number of left ids.
func (m *ConnectionMatrix) Rows() int { return m.rows }

// Cols returns the number of right ids.
func (m *ConnectionMatrix) Cols() int { return m.cols }

// Bytes serializes the matrix to the LXCX format.
func (m *ConnectionMatrix) Bytes() []byte {
	buf := make([]byte, 0, connHeaderSize+len(m.costs)*2+len(m.roles))
	buf = append(buf, connMagic...)
	buf = append(buf, connVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.rows))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.cols))
	for _, c := range m.costs {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(c))
	}
	for _, r := range m.roles {
		buf = append(buf, byte(r))
	}
	return buf
}

// ConnectionMatrixFromBytes parses an LXCX image.
func ConnectionMatrixFromBytes(data []byte) (*ConnectionMatrix, error) {
	if len(data) < connHeaderSize {
		return nil, ErrInvalidHeader
	}
	if string(data[:4]) != connMagic {
		return nil, ErrInvalidMagic
	}
	if data[4] != connVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}
	rows := int(binary.LittleEndian.Uint32(data[5:9]))
	cols := int(binary.LittleEndian.Uint32(data[9:13]))

	costBytes := rows * cols * 2
	if connHeaderSize+costBytes+rows > len(data) {
		return nil, ErrTruncated
	}

	costs := make([]int16, rows*cols)
	for i := range costs {
		costs[i] = int16(binary.LittleEndian.Uint16(data[connHeaderSize+i*2:]))
	}
	roles := make([]Role, rows)
	roleStart := connHeaderSize + costBytes
	for i := range roles {
		roles[i] = Role(data[roleStart+i])
	}

	return &ConnectionMatrix{rows: rows, cols: cols, costs: costs, roles: roles}, nil
}

// LoadConnectionMatrix reads an LXCX file fully into memory.
func LoadConnectionMatrix(path string) (*ConnectionMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dict: read %s: %w", path, err)
	}
	return ConnectionMatrixFromBytes(data)
}

// SaveConnectionMatrix writes the LXCX image atomically.
func SaveConnectionMatrix(m *ConnectionMatrix, path string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, m.Bytes(), 0o644); err != nil {
		return fmt.Errorf("dict: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("dict: rename %s: %w", tmp, err)
	}
	return nil
}

// ConnCost looks up a transition cost, treating a nil matrix as the unigram
// fallback where every transition costs 0.
func ConnCost(m *ConnectionMatrix, left, right uint16) int64 {
	if m == nil {
		return 0
	}
	return int64(m.Cost(left, right))
}
