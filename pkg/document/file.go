package document

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"

	"github.com/dd0wney/cluso-opticbench/pkg/logging"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
)

// Load reads a document from disk. The codec follows the file extension.
// The file is memory mapped for the duration of the decode.
func Load(path string, opts ...Option) (*Document, error) {
	o := newOptions(opts)
	c, err := CodecFor(path)
	if err != nil {
		return nil, optic.NewError("load document").Data().Cause(err).Err()
	}
	data, err := readMapped(path)
	if err != nil {
		o.metrics.RecordDocument("load", string(c), "error", 0)
		return nil, optic.NewError("load document").Data().Cause(err).Err()
	}
	d, err := Decode(data, c, opts...)
	if err != nil {
		o.metrics.RecordDocument("load", string(c), "error", len(data))
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	o.metrics.RecordDocument("load", string(c), "success", len(data))
	o.logger.Debug("document loaded", logging.Path(path), logging.String("fingerprint", d.Fingerprint))
	return d, nil
}

func readMapped(path string) ([]byte, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	buf := make([]byte, r.Len())
	if _, err := r.ReadAt(buf, 0); err != nil && len(buf) > 0 {
		return nil, err
	}
	return buf, nil
}

// Save writes a document to disk with the codec of the file extension.
// The file is replaced atomically.
func Save(path string, d *Document, opts ...Option) error {
	o := newOptions(opts)
	c, err := CodecFor(path)
	if err != nil {
		return optic.NewError("save document").Data().Cause(err).Err()
	}
	data, err := Encode(d, c, opts...)
	if err != nil {
		o.metrics.RecordDocument("save", string(c), "error", 0)
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		o.metrics.RecordDocument("save", string(c), "error", 0)
		return optic.NewError("save document").Data().Cause(err).Err()
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		o.metrics.RecordDocument("save", string(c), "error", 0)
		return optic.NewError("save document").Data().Cause(err).Err()
	}
	if err := tmp.Close(); err != nil {
		o.metrics.RecordDocument("save", string(c), "error", 0)
		return optic.NewError("save document").Data().Cause(err).Err()
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		o.metrics.RecordDocument("save", string(c), "error", 0)
		return optic.NewError("save document").Data().Cause(err).Err()
	}
	o.metrics.RecordDocument("save", string(c), "success", len(data))
	o.logger.Debug("document saved", logging.Path(path), logging.String("codec", string(c)))
	return nil
}

// Convert rewrites the document at src to dst, choosing both codecs from
// the file extensions. It returns the fingerprint of the written document.
func Convert(src, dst string, opts ...Option) (string, error) {
	d, err := Load(src, opts...)
	if err != nil {
		return "", err
	}
	if err := Save(dst, d, opts...); err != nil {
		return "", err
	}
	return d.Fingerprint, nil
}
