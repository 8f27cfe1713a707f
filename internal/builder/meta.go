package builder

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio"

	"github.com/pretreedb/pretree/internal/compress"
)

func buildTime() int64 {
	return time.Now().Unix()
}

// Meta holds the mutable counters of a build and the descriptive fields
// published with the finished database.
type Meta struct {
	// Name is the database name.
	Name string
	// Path is the database directory; empty for in-memory databases.
	Path string

	// Size is the number of rows, which is also the next pre value.
	Size int
	// NDocs is the number of document nodes.
	NDocs int
	// LastID is the highest assigned node id.
	LastID int
	// FileSize is the size of the parsed input, when known.
	FileSize int64
	// Time is the build timestamp in Unix seconds.
	Time int64
	// Encoding is the character encoding of stored tokens.
	Encoding string
	// Codec is the token compression codec of the side files.
	Codec compress.Type

	// TblSum, TxtSum and AtvSum are XXH3 digests of the table, text and
	// attribute-value streams as written. The table digest covers the
	// stream before size patching.
	TblSum, TxtSum, AtvSum uint64
}

// NewMeta returns a meta for a fresh build.
func NewMeta(name string) *Meta {
	return &Meta{Name: name, Encoding: "UTF-8"}
}

// MetaFile is the name of the meta file within a database directory.
const MetaFile = "inf"

// WriteFile atomically publishes the meta file at path. The file appears
// complete or not at all, so a killed process never leaves a torn meta.
func (m *Meta) WriteFile(path string) error {
	var sb strings.Builder
	put := func(k, v string) { fmt.Fprintf(&sb, "%s %s\n", k, v) }
	put("NAME", m.Name)
	put("SIZE", strconv.Itoa(m.Size))
	put("NDOCS", strconv.Itoa(m.NDocs))
	put("LASTID", strconv.Itoa(m.LastID))
	put("FSIZE", strconv.FormatInt(m.FileSize, 10))
	put("TIME", strconv.FormatInt(m.Time, 10))
	put("ENCODING", m.Encoding)
	put("CODEC", m.Codec.String())
	put("TBLSUM", strconv.FormatUint(m.TblSum, 16))
	put("TXTSUM", strconv.FormatUint(m.TxtSum, 16))
	put("ATVSUM", strconv.FormatUint(m.AtvSum, 16))
	return renameio.WriteFile(path, []byte(sb.String()), 0o644)
}

// ReadMeta parses a meta file.
func ReadMeta(r io.Reader) (*Meta, error) {
	m := &Meta{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("builder: malformed meta line %q", line)
		}
		var err error
		switch key {
		case "NAME":
			m.Name = value
		case "SIZE":
			m.Size, err = strconv.Atoi(value)
		case "NDOCS":
			m.NDocs, err = strconv.Atoi(value)
		case "LASTID":
			m.LastID, err = strconv.Atoi(value)
		case "FSIZE":
			m.FileSize, err = strconv.ParseInt(value, 10, 64)
		case "TIME":
			m.Time, err = strconv.ParseInt(value, 10, 64)
		case "ENCODING":
			m.Encoding = value
		case "CODEC":
			m.Codec, err = compress.ParseType(value)
		case "TBLSUM":
			m.TblSum, err = strconv.ParseUint(value, 16, 64)
		case "TXTSUM":
			m.TxtSum, err = strconv.ParseUint(value, 16, 64)
		case "ATVSUM":
			m.AtvSum, err = strconv.ParseUint(value, 16, 64)
		default:
			// Unknown keys are tolerated for forward compatibility.
		}
		if err != nil {
			return nil, fmt.Errorf("builder: meta field %s: %w", key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
