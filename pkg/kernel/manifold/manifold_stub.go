//go:build !manifold

package manifold

import (
	"github.com/chazu/vibecad/pkg/kernel"
)

// New returns ErrUnavailable. Build with -tags=manifold to enable.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
