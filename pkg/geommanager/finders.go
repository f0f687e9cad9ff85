package geommanager

import (
	"strconv"
	"strings"

	"github.com/next-exp/oaevent_go/pkg/geomid"
)

// Finder assigns geometry ids while the id map walks the tree. Search is
// called with the names of the current node and its ancestors, top first,
// and returns the id of the current node when it has one. Returning
// ErrFinderStop prevents the finder from seeing the daughters of the
// current node. Finders keep counters between calls, so a fresh set is
// needed for every walk.
type Finder interface {
	Search(names []string) (geomid.GeometryId, bool, error)
}

// DefaultFinders returns new finders for the ND280 sub-detectors.
func DefaultFinders() []Finder {
	return []Finder{
		NewP0DFinder(),
		NewTPCFinder(),
		NewFGDFinder(),
		NewECalFinder(),
		NewSMRDFinder(),
	}
}

func last(names []string) string {
	return names[len(names)-1]
}

type P0DFinder struct {
	superP0Dule    int
	p0dule         int
	layer          int
	bar            int
	target         int
	ecalRadiator   int
	targetRadiator int
}

func NewP0DFinder() *P0DFinder {
	return &P0DFinder{-1, -1, -1, -1, -1, -1, -1}
}

func (f *P0DFinder) Search(names []string) (geomid.GeometryId, bool, error) {
	if len(names) < 5 || !strings.Contains(names[4], "P0D_") {
		return geomid.EmptyId, false, nil
	}
	name := last(names)

	if strings.Contains(name, "P0D_") {
		return geomid.P0DDetector(), true, nil
	}

	for i, prefix := range []string{"USECal_", "USTarget_", "CTarget_", "CECal_"} {
		if strings.Contains(name, prefix) {
			f.superP0Dule = i
			return geomid.P0DSuperP0Dule(f.superP0Dule), true, nil
		}
	}

	if strings.Contains(name, "P0Dule_") {
		f.p0dule++
		f.layer = -1
		f.bar = -1
		return geomid.P0DP0Dule(f.p0dule), true, nil
	}

	if strings.HasPrefix(name, "Target_") {
		f.target++
		return geomid.P0DTarget(f.target), true, nil
	}

	if strings.Contains(name, "Radiator_") {
		if f.superP0Dule == 0 || f.superP0Dule == 3 {
			f.ecalRadiator++
			return geomid.P0DECalRadiator(f.ecalRadiator), true, nil
		}
		f.targetRadiator++
		return geomid.P0DTargetRadiator(f.targetRadiator), true, nil
	}

	if strings.Contains(name, "X_") {
		f.layer = 0
		f.bar = -1
		return geomid.EmptyId, false, nil
	}
	if strings.Contains(name, "Y_") {
		f.layer = 1
		f.bar = -1
		return geomid.EmptyId, false, nil
	}

	if strings.Contains(name, "Bar_") {
		f.bar++
		return geomid.P0DBar(f.p0dule, f.layer, f.bar), true, nil
	}
	return geomid.EmptyId, false, nil
}

type TPCFinder struct {
	module    int
	half      int
	microMega int
}

func NewTPCFinder() *TPCFinder {
	return &TPCFinder{-1, -1, -1}
}

func (f *TPCFinder) Search(names []string) (geomid.GeometryId, bool, error) {
	if len(names) < 6 || !strings.Contains(names[5], "TPC") {
		return geomid.EmptyId, false, nil
	}
	name := last(names)

	for i, prefix := range []string{"TPC1_", "TPC2_", "TPC3_"} {
		if strings.Contains(name, prefix) {
			f.module = i
			f.half = -1
			f.microMega = -1
			return geomid.TPCModule(f.module), true, nil
		}
	}

	if strings.Contains(name, "Half_") {
		f.half++
		f.microMega = -1
		return geomid.EmptyId, false, nil
	}

	if strings.Contains(name, "MM_") {
		f.microMega++
		return geomid.TPCMicroMega(f.module, f.half, f.microMega), true, nil
	}
	return geomid.EmptyId, false, nil
}

type FGDFinder struct {
	fgd    int
	module int
	layer  int
	bar    int
	target int
}

func NewFGDFinder() *FGDFinder {
	return &FGDFinder{-1, -1, -1, -1, -1}
}

func (f *FGDFinder) Search(names []string) (geomid.GeometryId, bool, error) {
	if len(names) < 6 || !strings.Contains(names[5], "FGD") {
		return geomid.EmptyId, false, nil
	}
	name := last(names)

	for i, prefix := range []string{"FGD1_", "FGD2_"} {
		if strings.Contains(name, prefix) {
			f.fgd = i
			f.module = -1
			f.layer = -1
			f.bar = -1
			f.target = -1
			return geomid.FGDDetector(f.fgd), true, nil
		}
	}

	if strings.Contains(name, "ScintX_") {
		f.module++
		f.layer = 0
		f.bar = -1
		return geomid.FGDLayer(f.fgd, f.module, f.layer), true, nil
	}
	if strings.Contains(name, "ScintY_") {
		f.layer = 1
		f.bar = -1
		return geomid.FGDLayer(f.fgd, f.module, f.layer), true, nil
	}

	if strings.Contains(name, "Water") {
		f.target++
		return geomid.FGDTarget(f.target), true, nil
	}

	if strings.Contains(name, "Bar_") {
		f.bar++
		return geomid.FGDBar(f.fgd, f.module, f.layer, f.bar), true, nil
	}
	return geomid.EmptyId, false, nil
}

type ECalFinder struct {
	ecal     geomid.Detector
	clam     int
	module   int
	layer    int
	bar      int
	radiator int
}

func NewECalFinder() *ECalFinder {
	return &ECalFinder{
		ecal:     geomid.DSECal,
		clam:     geomid.ECalNoClam,
		module:   geomid.ECalNoModule,
		layer:    -1,
		bar:      -1,
		radiator: -1,
	}
}

func (f *ECalFinder) Search(names []string) (geomid.GeometryId, bool, error) {
	if len(names) < 2 {
		return geomid.EmptyId, false, nil
	}
	if !strings.Contains(names[1], "DsECal_") {
		if len(names) < 5 {
			return geomid.EmptyId, false, nil
		}
		if !strings.Contains(names[4], "DsECal_") &&
			!strings.Contains(names[4], "BrlECal_") &&
			!strings.Contains(names[4], "P0DECal_") {
			return geomid.EmptyId, false, nil
		}
	}
	name := last(names)

	if strings.Contains(name, "DsECal_") {
		f.ecal = geomid.DSECal
		f.clam = geomid.ECalNoClam
		f.module = geomid.ECalNoModule
		f.layer = -1
		f.bar = -1
		return geomid.ECalDetector(geomid.DSECal), true, nil
	}

	barrel := strings.Contains(name, "BrlECal_")
	if barrel || strings.Contains(name, "P0DECal_") {
		f.ecal = geomid.PECal
		if barrel {
			f.ecal = geomid.TECal
		}
		f.layer = -1
		f.bar = -1
		if len(names) > 3 {
			if strings.Contains(names[3], "RightClam_") {
				f.clam = geomid.ECalNegXClam
			}
			if strings.Contains(names[3], "LeftClam_") {
				f.clam = geomid.ECalPosXClam
			}
		}
		switch name[len(name)-1] {
		case '0':
			f.module = geomid.ECalTopModule
		case '1':
			f.module = geomid.ECalSideModule
		case '2':
			f.module = geomid.ECalBottomModule
		default:
			return geomid.EmptyId, false, nil
		}
		return geomid.ECalContainer(f.ecal, f.clam, f.module), true, nil
	}

	for _, m := range []struct {
		prefix string
		module int
	}{
		{"Bottom_", geomid.ECalBottomModule},
		{"Side_", geomid.ECalSideModule},
		{"Top_", geomid.ECalTopModule},
	} {
		if strings.Contains(name, m.prefix) {
			f.module = m.module
			f.layer = -1
			f.bar = -1
			return geomid.ECalModule(f.ecal, f.clam, f.module), true, nil
		}
	}

	if strings.Contains(name, "Absorber") {
		f.radiator++
		return geomid.ECalRadiator(f.ecal, f.clam, f.module, f.radiator), true, nil
	}

	if strings.Contains(name, "Scint") {
		f.layer++
		f.bar = -1
		return geomid.ECalLayer(f.ecal, f.clam, f.module, f.layer), true, nil
	}

	if strings.Contains(name, "Bar_") {
		f.bar++
		return geomid.ECalBar(f.ecal, f.clam, f.module, f.layer, f.bar), true, nil
	}
	return geomid.EmptyId, false, nil
}

type SMRDFinder struct {
	clam  int
	yoke  int
	layer int
	slot  int
	bar   int
}

func NewSMRDFinder() *SMRDFinder {
	return &SMRDFinder{-1, -1, -1, -1, -1}
}

func (f *SMRDFinder) Search(names []string) (geomid.GeometryId, bool, error) {
	if len(names) < 5 || !strings.Contains(names[4], "MRD") {
		return geomid.EmptyId, false, nil
	}
	switch {
	case strings.Contains(names[3], "LeftClam_"):
		f.clam = 0
	case strings.Contains(names[3], "RightClam_"):
		f.clam = 1
	default:
		f.clam = -1
	}
	name := last(names)

	if strings.Contains(name, "MRDArm:") || strings.Contains(name, "MRDSide:") {
		digits := name[strings.Index(name, ":")+1:]
		if len(digits) > 3 {
			digits = digits[:3]
		}
		code, err := strconv.Atoi(digits)
		if err != nil {
			code = 0
		}
		f.slot = code % 10
		f.layer = (code / 10) % 10
		f.yoke = code / 100
		f.bar = -1
		return geomid.SMRDModule(f.clam, f.yoke, f.layer, f.slot), true, nil
	}

	if strings.Contains(name, "Bar_") {
		f.bar++
		return geomid.SMRDBar(f.clam, f.yoke, f.layer, f.slot, f.bar), true, nil
	}
	return geomid.EmptyId, false, nil
}
