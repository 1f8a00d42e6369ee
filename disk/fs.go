package disk

import (
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Filesystem is the narrow filesystem surface the disk tier depends on.
// It is a billy filesystem extended with hard links, which billy does not
// model. All paths handed to it are absolute.
type Filesystem interface {
	billy.Basic
	billy.Dir

	// Link creates newname as a hard link to oldname. Both paths must be
	// on the same volume.
	Link(oldname, newname string) error
}

// osFS backs the tier with the real filesystem, rooted at "/" so that
// absolute cache paths and externally supplied paths resolve as-is.
type osFS struct {
	billy.Filesystem
}

// NewOSFilesystem returns the default Filesystem backed by the operating
// system.
func NewOSFilesystem() Filesystem {
	return osFS{Filesystem: osfs.New("/")}
}

func (osFS) Link(oldname, newname string) error {
	return os.Link(oldname, newname)
}

// memFS backs the tier with billy's in-memory filesystem. Intended for
// hermetic tests; hard links degrade to a byte copy.
type memFS struct {
	billy.Filesystem
}

// NewMemFilesystem returns an in-memory Filesystem.
func NewMemFilesystem() Filesystem {
	return memFS{Filesystem: memfs.New()}
}

func (m memFS) Link(oldname, newname string) error {
	data, err := util.ReadFile(m.Filesystem, oldname)
	if err != nil {
		return err
	}
	return util.WriteFile(m.Filesystem, newname, data, 0o644)
}
