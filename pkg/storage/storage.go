package storage

import (
	"context"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

const defaultMaxSize = 5 << 20 // 5 MB

var (
	ErrInvalidFileType = errors.New("invalid file type, only jpg, png and gif are allowed")
	ErrFileTooLarge    = errors.New("file is larger than allowed")
)

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

type Config struct {
	Dir     string `yaml:"dir" envconfig:"STORAGE_DIR" default:"./uploads"`
	MaxSize int64  `yaml:"maxSize" envconfig:"STORAGE_MAX_SIZE" default:"5242880"`
}

// Disk keeps uploaded images in a flat directory.
type Disk struct {
	cfg Config
	now func() time.Time
}

func NewDisk(cfg Config) (*Disk, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "os.MkdirAll")
	}
	return &Disk{cfg: cfg, now: time.Now}, nil
}

// Save sniffs the upload, writes it under a time based name and returns that name.
func (d *Disk) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > d.cfg.MaxSize {
		return "", ErrFileTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "fh.Open")
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", errors.Wrap(err, "mimetype.DetectReader")
	}
	ext, ok := allowed[mt.String()]
	if !ok {
		return "", ErrInvalidFileType
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "src.Seek")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := strconv.FormatInt(d.now().UnixNano(), 10) + ext
	dst, err := os.OpenFile(filepath.Join(d.cfg.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "os.OpenFile")
	}
	if _, err := io.Copy(dst, io.LimitReader(src, d.cfg.MaxSize+1)); err != nil {
		_ = dst.Close()
		return "", errors.Wrap(err, "io.Copy")
	}
	return name, dst.Close()
}
