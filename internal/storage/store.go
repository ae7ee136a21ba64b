package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/san-kum/vecfield/internal/config"
	"github.com/san-kum/vecfield/internal/logx"
)

const (
	metadataFile  = "metadata.json"
	configFile    = "config.yaml"
	vectorsFile   = "vectors.csv"
	thumbnailFile = "thumbnail.png"

	// ThumbnailWidth is the width Thumbnail scales to by default.
	ThumbnailWidth = 320
)

var (
	ErrNotFound  = errors.New("storage: artifact not found")
	ErrInvalidID = errors.New("storage: invalid artifact id")
	ErrNoVectors = errors.New("storage: artifact has no vector data")
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// Metadata describes a saved artifact.
type Metadata struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Kind         string    `json:"kind"`
	Timestamp    time.Time `json:"timestamp"`
	Seed         uint32    `json:"seed"`
	CaptureTime  float64   `json:"capture_time"`
	Rows         int       `json:"rows"`
	Cols         int       `json:"cols"`
	HasVectors   bool      `json:"has_vectors"`
	HasThumbnail bool      `json:"has_thumbnail"`
}

// Artifact is a saved configuration plus, optionally, the exact vector
// positions at capture time and a PNG thumbnail.
type Artifact struct {
	Meta      Metadata
	Config    *config.Config
	Vectors   []float32
	Thumbnail []byte
}

// Save writes a and returns its new id.
func (s *Store) Save(a *Artifact) (string, error) {
	if a.Config == nil {
		return "", fmt.Errorf("storage: artifact has no config")
	}
	id := uuid.NewString()
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	meta := a.Meta
	meta.ID = id
	meta.Timestamp = s.now()
	meta.Kind = a.Config.Animation.Kind.String()
	meta.Seed = a.Config.Animation.Seed
	meta.Rows, meta.Cols = a.Config.Grid.Rows, a.Config.Grid.Cols
	meta.HasVectors = len(a.Vectors) > 0
	meta.HasThumbnail = len(a.Thumbnail) > 0

	if err := config.Save(filepath.Join(dir, configFile), a.Config); err != nil {
		return "", err
	}
	if meta.HasVectors {
		if err := writeVectors(filepath.Join(dir, vectorsFile), a.Vectors); err != nil {
			return "", err
		}
	}
	if meta.HasThumbnail {
		if err := os.WriteFile(filepath.Join(dir, thumbnailFile), a.Thumbnail, 0644); err != nil {
			return "", err
		}
	}
	// Metadata last: List skips directories without it.
	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return "", err
	}

	a.Meta = meta
	logx.L().Info("artifact saved", "id", id, "kind", meta.Kind, "vectors", meta.HasVectors)
	return id, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeVectors stores one record per row. Values are written in their
// shortest float32 form so they parse back bit for bit.
func writeVectors(path string, v []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"base_x", "base_y", "angle", "length"}); err != nil {
		return err
	}
	row := make([]string, 4)
	for i := 0; i+4 <= len(v); i += 4 {
		for j := range row {
			row[j] = strconv.FormatFloat(float64(v[i+j]), 'g', -1, 32)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) dir(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.baseDir, id), nil
}

// List returns every artifact's metadata, newest first.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	out := make([]Metadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := readMeta(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			logx.L().Debug("skipping artifact", "dir", entry.Name(), "err", err)
			continue
		}
		out = append(out, *meta)
	}
	slices.SortFunc(out, func(a, b Metadata) int { return b.Timestamp.Compare(a.Timestamp) })
	return out, nil
}

func readMeta(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Load reads an artifact's metadata, config and thumbnail. Vectors are
// loaded separately with LoadVectors.
func (s *Store) Load(id string) (*Artifact, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	meta, err := readMeta(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	cfg, err := config.Load(filepath.Join(dir, configFile))
	if err != nil {
		return nil, err
	}

	a := &Artifact{Meta: *meta, Config: cfg}
	if meta.HasThumbnail {
		if a.Thumbnail, err = os.ReadFile(filepath.Join(dir, thumbnailFile)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (s *Store) LoadVectors(id string) ([]float32, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(dir, vectorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoVectors, id)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 4
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", vectorsFile, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%w: %s", ErrNoVectors, id)
	}

	out := make([]float32, 0, (len(records)-1)*4)
	for i, rec := range records[1:] {
		for _, field := range rec {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("storage: %s row %d: %w", vectorsFile, i+1, err)
			}
			out = append(out, float32(v))
		}
	}
	return out, nil
}

func (s *Store) Delete(id string) error {
	dir, err := s.dir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return os.RemoveAll(dir)
}

// WriteJSON writes the metadata of a as indented JSON.
func WriteJSON(w io.Writer, meta Metadata) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// Thumbnail decodes a PNG and scales it to width, keeping the aspect.
func Thumbnail(pngData []byte, width int) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("storage: thumbnail: %w", err)
	}
	b := src.Bounds()
	if width <= 0 || b.Dx() == 0 {
		width = ThumbnailWidth
	}
	height := b.Dy() * width / max(b.Dx(), 1)
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
