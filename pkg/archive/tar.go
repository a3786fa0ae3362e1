package archive

import (
	"archive/tar"
	"bytes"
	"io"

	"github.com/matzehuels/depscope/pkg/errors"
)

// walkTar calls fn for every regular file in the (already decompressed) tar
// stream data.
func walkTar(data []byte, fn func(name string, body []byte) error) error {
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Parse(err, "read tar entry")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return errors.Parse(err, "read tar entry %s", hdr.Name)
		}
		if err := fn(hdr.Name, body); err != nil {
			return err
		}
	}
}
