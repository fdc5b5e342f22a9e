//go:build !unix && !windows

package xwaitobj

// channel 在不支持的平台上没有后端。
type channel struct{}

func openChannel() (channel, error) {
	return channel{}, ErrUnsupportedPlatform
}

func (c *channel) descriptor() Descriptor { return 0 }

func (c *channel) isSet() (bool, error) { return false, ErrUnsupportedPlatform }

func (c *channel) set() error { return ErrUnsupportedPlatform }

func (c *channel) clear() error { return ErrUnsupportedPlatform }

func (c *channel) close() []error { return nil }
