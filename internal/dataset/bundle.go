package dataset

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/epo/internal/contracts"
)

const (
	bundleMagic   = "EPOB"
	bundleVersion = uint16(1)

	maxStringLen = 1 << 20
	maxListLen   = 1 << 24
	maxCells     = 1 << 28
)

// ErrBadBundle is returned for files that are not tensor bundles
var ErrBadBundle = errors.New("dataset: not a tensor bundle")

// Bundle layout (little endian):
//
//	magic[4] version:u16 T:u32 N:u32 K:u32
//	run_id cost_name feature_names[K] symbols[N]   strings are u32 length + bytes
//	times[T]:i64 unix nanos
//	features[T*N*K]:f64 costs[T*N]:f64
//	params: u32 length + JSON (0 = none)

type binWriter struct {
	w   *bufio.Writer
	err error
}

func (w *binWriter) put(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.LittleEndian, v)
}

func (w *binWriter) str(s string) {
	w.put(uint32(len(s)))
	if w.err == nil {
		_, w.err = w.w.WriteString(s)
	}
}

func (w *binWriter) strs(ss []string) {
	w.put(uint32(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}

type binReader struct {
	r   *bufio.Reader
	err error
}

func (r *binReader) get(v any) {
	if r.err != nil {
		return
	}
	r.err = binary.Read(r.r, binary.LittleEndian, v)
}

func (r *binReader) length(limit int) int {
	var n uint32
	r.get(&n)
	if r.err == nil && int(n) > limit {
		r.err = fmt.Errorf("%w: length %d exceeds %d", ErrBadBundle, n, limit)
	}
	return int(n)
}

func (r *binReader) str() string {
	n := r.length(maxStringLen)
	if r.err != nil {
		return ""
	}
	buf := make([]byte, n)
	_, r.err = io.ReadFull(r.r, buf)
	return string(buf)
}

func (r *binReader) strs() []string {
	n := r.length(maxListLen)
	out := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.str())
	}
	return out
}

// WriteBundle encodes a bundle to w
func WriteBundle(w io.Writer, b *contracts.TensorBundle) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid bundle: %w", err)
	}
	T, N, K := b.Dims()

	var params []byte
	if b.Params != nil {
		var err error
		if params, err = json.Marshal(b.Params); err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
	}

	nanos := make([]int64, T)
	for i, t := range b.Times {
		nanos[i] = t.UnixNano()
	}

	bw := &binWriter{w: bufio.NewWriter(w)}
	bw.put([]byte(bundleMagic))
	bw.put(bundleVersion)
	bw.put([]uint32{uint32(T), uint32(N), uint32(K)})
	bw.str(b.RunID)
	bw.str(b.CostName)
	bw.strs(b.FeatureNames)
	bw.strs(b.Symbols)
	bw.put(nanos)
	bw.put(b.Features)
	bw.put(b.Costs)
	bw.put(uint32(len(params)))
	bw.put(params)
	if bw.err != nil {
		return fmt.Errorf("write bundle: %w", bw.err)
	}
	return bw.w.Flush()
}

// ReadBundle decodes a bundle written by WriteBundle
func ReadBundle(r io.Reader) (*contracts.TensorBundle, error) {
	br := &binReader{r: bufio.NewReader(r)}

	magic := make([]byte, len(bundleMagic))
	br.get(magic)
	if br.err != nil || string(magic) != bundleMagic {
		return nil, ErrBadBundle
	}
	var version uint16
	br.get(&version)
	if br.err == nil && version != bundleVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadBundle, version)
	}

	dims := make([]uint32, 3)
	br.get(dims)
	T, N, K := int(dims[0]), int(dims[1]), int(dims[2])
	if br.err == nil && (T > maxListLen || N > maxListLen || K > maxListLen || float64(T)*float64(N)*float64(max(K, 1)) > maxCells) {
		return nil, fmt.Errorf("%w: dims %dx%dx%d", ErrBadBundle, T, N, K)
	}

	runID := br.str()
	costName := br.str()
	featureNames := br.strs()
	symbols := br.strs()
	if br.err != nil {
		return nil, fmt.Errorf("read bundle header: %w", br.err)
	}
	if len(featureNames) != K || len(symbols) != N {
		return nil, fmt.Errorf("%w: header declares N=%d K=%d, found %d symbols and %d features",
			ErrBadBundle, N, K, len(symbols), len(featureNames))
	}

	nanos := make([]int64, T)
	br.get(nanos)
	times := make([]time.Time, T)
	for i, ns := range nanos {
		times[i] = time.Unix(0, ns).UTC()
	}

	b := contracts.NewTensorBundle(times, symbols, featureNames, costName)
	b.RunID = runID
	br.get(b.Features)
	br.get(b.Costs)

	params := make([]byte, br.length(maxStringLen))
	br.get(params)
	if br.err != nil {
		return nil, fmt.Errorf("read bundle body: %w", br.err)
	}
	if len(params) > 0 {
		b.Params = &contracts.StructuralParams{}
		if err := json.Unmarshal(params, b.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadBundle, err)
	}
	return b, nil
}

// SaveBundle writes a bundle to path atomically
func SaveBundle(path string, b *contracts.TensorBundle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp bundle: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteBundle(tmp, b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp bundle: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadBundle reads a bundle from path
func LoadBundle(path string) (*contracts.TensorBundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	return ReadBundle(f)
}
