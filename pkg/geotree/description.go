package geotree

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// Volume describes a placed box and its daughters. With Repeat > 0 the
// volume is placed Repeat times, named Name_0 ... Name_{Repeat-1}, each
// shifted by Step from the previous one.
type Volume struct {
	Name      string     `yaml:"name"`
	Shape     [3]float64 `yaml:"shape"`
	Position  [3]float64 `yaml:"position"`
	Rotation  *Rotate    `yaml:"rotation,omitempty"`
	Repeat    int        `yaml:"repeat,omitempty"`
	Step      [3]float64 `yaml:"step,omitempty"`
	Daughters []Volume   `yaml:"daughters,omitempty"`
}

// Rotate is an angle in degrees around an axis.
type Rotate struct {
	Axis  [3]float64 `yaml:"axis"`
	Angle float64    `yaml:"angle"`
}

type Description struct {
	Name string `yaml:"name"`
	Top  Volume `yaml:"top"`
}

func ParseDescription(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("error parsing geometry description: %w", err)
	}
	if d.Top.Name == "" {
		return nil, fmt.Errorf("geometry description has no top volume")
	}
	return &d, nil
}

// Build places every volume of the description in a new tree.
func (d *Description) Build() (*Tree, error) {
	t := New(d.Name)
	if err := t.place(-1, d.Top); err != nil {
		return nil, err
	}
	return t, nil
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

func (t *Tree) place(parent int, v Volume) error {
	copies := v.Repeat
	if copies <= 0 {
		copies = 1
	}
	shape := Shape{DX: v.Shape[0], DY: v.Shape[1], DZ: v.Shape[2]}
	for i := 0; i < copies; i++ {
		name := v.Name
		if v.Repeat > 0 {
			name = fmt.Sprintf("%s_%d", v.Name, i)
		}
		local := Translation(r3.Add(vec(v.Position), r3.Scale(float64(i), vec(v.Step))))
		if v.Rotation != nil {
			rot := Rotation(vec(v.Rotation.Axis), v.Rotation.Angle*math.Pi/180)
			local = Transform{Rot: rot.Rot, Trans: local.Trans}
		}
		index, err := t.AddNode(parent, name, shape, local)
		if err != nil {
			return err
		}
		for _, daughter := range v.Daughters {
			if err := t.place(index, daughter); err != nil {
				return err
			}
		}
	}
	return nil
}
