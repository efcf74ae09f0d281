package export

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"blackjack-rl/server/agent"
)

var npyMagic = []byte("\x93NUMPY")

// FileName encodes the episode count the way the offline visualizer expects.
func FileName(episodes int) string { return fmt.Sprintf("qtable-%dsteps.npy", episodes) }

// WriteNPY writes q as a NumPy v1.0 array: little-endian float64, C order,
// shape (player, upcard, action).
func WriteNPY(w io.Writer, q *agent.QTable) error {
	shape := agent.Shape()
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d, %d), }",
		shape[0], shape[1], shape[2])
	// magic(6) + version(2) + header length(2) + header, padded to 64 bytes
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)

	var buf [8]byte
	for _, v := range q.Flat() {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

var shapeRE = regexp.MustCompile(`'shape':\s*\((\d+),\s*(\d+),\s*(\d+),?\)`)

// ReadNPY loads a table written by WriteNPY (or numpy.save of the same shape).
func ReadNPY(r io.Reader) (*agent.QTable, error) {
	br := bufio.NewReader(r)
	pre := make([]byte, 10)
	if _, err := io.ReadFull(br, pre); err != nil {
		return nil, fmt.Errorf("npy: %w", err)
	}
	if !bytes.Equal(pre[:6], npyMagic) {
		return nil, fmt.Errorf("npy: bad magic")
	}
	var hlen int
	switch pre[6] {
	case 1:
		hlen = int(binary.LittleEndian.Uint16(pre[8:10]))
	case 2, 3:
		var ext [2]byte
		if _, err := io.ReadFull(br, ext[:]); err != nil {
			return nil, fmt.Errorf("npy: %w", err)
		}
		hlen = int(binary.LittleEndian.Uint32(append(pre[8:10:10], ext[:]...)))
	default:
		return nil, fmt.Errorf("npy: unsupported version %d.%d", pre[6], pre[7])
	}
	header := make([]byte, hlen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("npy header: %w", err)
	}
	h := string(header)
	if !strings.Contains(h, "'<f8'") {
		return nil, fmt.Errorf("npy: want little-endian float64, header %q", strings.TrimSpace(h))
	}
	if strings.Contains(h, "'fortran_order': True") {
		return nil, fmt.Errorf("npy: fortran order not supported")
	}
	m := shapeRE.FindStringSubmatch(h)
	if m == nil {
		return nil, fmt.Errorf("npy: want a 3-axis array, header %q", strings.TrimSpace(h))
	}
	want := agent.Shape()
	for i := 0; i < 3; i++ {
		if n, _ := strconv.Atoi(m[i+1]); n != want[i] {
			return nil, fmt.Errorf("npy: shape (%s, %s, %s), want %v", m[1], m[2], m[3], want)
		}
	}

	vals := make([]float64, want[0]*want[1]*want[2])
	var buf [8]byte
	for i := range vals {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("npy data: %w", err)
		}
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
	}
	return agent.QTableFromFlat(vals)
}

// SaveNPY writes the table under dir using FileName and returns the path.
func SaveNPY(dir string, episodes int, q *agent.QTable) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(episodes))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteNPY(f, q); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func LoadNPY(path string) (*agent.QTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadNPY(f)
}
