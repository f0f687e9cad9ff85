package digits

import (
	"fmt"
	"strings"
)

type ProxyType int

const (
	ProxyInvalid ProxyType = iota
	ProxyTest
	ProxyP0D
	ProxyTPC
	ProxyFGD
	ProxyECal
	ProxySMRD
	ProxyINGRID
)

var proxyNames = []string{"invalid", "test", "p0d", "tpc", "fgd", "ecal", "smrd", "ingrid"}

// ConvertName returns the proxy type of a container name.
func ConvertName(name string) ProxyType {
	for i, n := range proxyNames {
		if n == name {
			return ProxyType(i)
		}
	}
	return ProxyInvalid
}

// ConvertType returns the container name of a proxy type.
func ConvertType(t ProxyType) (string, error) {
	if t < 0 || int(t) >= len(proxyNames) {
		return "", fmt.Errorf("%w: %d", ErrDigitTypeInvalid, t)
	}
	return proxyNames[t], nil
}

const (
	proxyTypeMask   = 0xF8000000
	proxyTypeShift  = 27
	proxySaltMask   = 0x07FE0000
	proxySaltShift  = 17
	proxyOffsetMask = 0x0001FFFF
	saltModulus     = 1024
)

// Proxy references a digit by container type and offset in a single word.
// A salt made from the container signature and the digit channel detects
// a container regenerated with different contents.
type Proxy uint32

func NewProxy(c *Container, offset int) (Proxy, error) {
	d := c.At(offset)
	if d == nil {
		return Proxy(proxyOffsetMask), fmt.Errorf("%w: offset %d in %s", ErrDigitNotFound, offset, c.Name)
	}
	if offset >= proxyOffsetMask {
		return Proxy(proxyOffsetMask), fmt.Errorf("%w: offset %d too large", ErrDigitNotFound, offset)
	}
	salt := (c.Signature() + d.ChannelId().AsInt()) % saltModulus
	p := uint32(ConvertName(c.Name))<<proxyTypeShift | salt<<proxySaltShift | uint32(offset)
	return Proxy(p), nil
}

func (p Proxy) Type() ProxyType {
	return ProxyType((uint32(p) & proxyTypeMask) >> proxyTypeShift)
}

func (p Proxy) Salt() uint32 {
	return (uint32(p) & proxySaltMask) >> proxySaltShift
}

func (p Proxy) Offset() int {
	return int(uint32(p) & proxyOffsetMask)
}

func (p Proxy) IsValid() bool {
	if p.Offset() == proxyOffsetMask {
		return false
	}
	return p.Type() != ProxyInvalid
}

// CheckSalt reports whether d at the proxy offset of a container with
// signature is the digit the proxy was made for.
func (p Proxy) CheckSalt(signature uint32, d Digit) bool {
	return (signature+d.ChannelId().AsInt())%saltModulus == p.Salt()
}

func (p Proxy) String() string {
	var b strings.Builder
	if name, err := ConvertType(p.Type()); err == nil {
		b.WriteString(name + ":")
	} else {
		fmt.Fprintf(&b, "invalid type(%d)", p.Type())
	}
	if p.Offset() == proxyOffsetMask {
		fmt.Fprintf(&b, " invalid offset(%d)", p.Offset())
	} else {
		fmt.Fprintf(&b, " %d", p.Offset())
	}
	return b.String()
}
