package digits

import (
	"encoding/binary"
	"hash/fnv"
)

// Container holds the digits of one type for an event.
type Container struct {
	Name   string
	Title  string
	Digits []Digit
}

func NewContainer(name string) *Container {
	return &Container{Name: name, Title: "Digit Pointers"}
}

func (c *Container) Add(d Digit) {
	c.Digits = append(c.Digits, d)
}

func (c *Container) Len() int {
	return len(c.Digits)
}

// At returns digit i, or nil when i is out of range.
func (c *Container) At(i int) Digit {
	if i < 0 || i >= len(c.Digits) {
		return nil
	}
	return c.Digits[i]
}

// Signature is a FNV-1 hash of the name, the title and every channel id.
// Two containers built from the same data have the same signature, so a
// container can be dropped and regenerated without breaking proxies.
func (c *Container) Signature() uint32 {
	h := fnv.New32()
	h.Write([]byte(c.Name))
	h.Write([]byte(c.Title))
	var buf [4]byte
	for _, d := range c.Digits {
		binary.LittleEndian.PutUint32(buf[:], d.ChannelId().AsInt())
		h.Write(buf[:])
	}
	return h.Sum32()
}
