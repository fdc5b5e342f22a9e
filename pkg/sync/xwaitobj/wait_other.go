//go:build !unix && !windows

package xwaitobj

func waitReady(_, _ []Descriptor, _ int) (int, error) {
	return -1, ErrUnsupportedPlatform
}
