package geomid

import (
	"fmt"

	"github.com/next-exp/oaevent_go/pkg/logger"
)

// Every detector payload starts with a four bit kind that selects the
// layout of bits 20-0.
const (
	KindMSB = 24
	KindLSB = 21
)

type bits struct {
	msb, lsb int
}

type fieldValue struct {
	bits
	value int
}

var (
	nodeIndex = bits{24, 0}

	p0dSuperP0Dule = bits{1, 0}
	p0dP0Dule      = bits{5, 0}
	p0dSequence    = bits{7, 0}
	p0dBarP0Dule   = bits{20, 15}
	p0dBarLayer    = bits{14, 14}
	p0dBarNumber   = bits{13, 0}

	tpcModule = bits{1, 0}
	tpcTPC    = bits{20, 19}
	tpcHalf   = bits{18, 18}
	tpcMM     = bits{17, 12}
	tpcPad    = bits{11, 0}

	fgdNumber  = bits{0, 0}
	fgdTarget  = bits{7, 0}
	fgdFGD     = bits{20, 20}
	fgdModule  = bits{19, 14}
	fgdLayer   = bits{13, 13}
	fgdBar     = bits{12, 0}
	ecalClam   = bits{20, 19}
	ecalModule = bits{18, 17}
	ecalLayer  = bits{16, 11}
	ecalBar    = bits{10, 0}
	smrdClam   = bits{20, 20}
	smrdYoke   = bits{19, 16}
	smrdLayer  = bits{15, 12}
	smrdSlot   = bits{11, 8}
	smrdBar    = bits{7, 0}
)

const (
	P0DKindDetector = iota
	P0DKindSuperP0Dule
	P0DKindP0Dule
	P0DKindTarget
	P0DKindECalRadiator
	P0DKindTargetRadiator
	P0DKindBar
)

const (
	TPCKindModule = iota
	TPCKindMicroMega
	TPCKindPad
)

const (
	FGDKindDetector = iota
	FGDKindTarget
	FGDKindLayer
	FGDKindBar
)

const (
	ECalKindDetector = iota
	ECalKindContainer
	ECalKindModule
	ECalKindLayer
	ECalKindRadiator
	ECalKindBar
)

const (
	SMRDKindModule = iota
	SMRDKindBar
)

const (
	ECalNoClam = iota
	ECalNegXClam
	ECalPosXClam
)

const (
	ECalNoModule = iota
	ECalTopModule
	ECalSideModule
	ECalBottomModule
)

// build assembles an id, logging and returning EmptyId when a value does
// not fit its field.
func build(det Detector, kind int, fields ...fieldValue) GeometryId {
	var id GeometryId
	err := id.SetFieldSafe(int(det), DetectorIdMSB, DetectorIdLSB)
	if err == nil {
		err = id.SetFieldSafe(kind, KindMSB, KindLSB)
	}
	for _, f := range fields {
		if err != nil {
			break
		}
		err = id.SetFieldSafe(f.value, f.msb, f.lsb)
	}
	if err != nil {
		logger.Warn(fmt.Sprintf("Cannot build %s geometry id: %v", det, err), "geomid")
		return EmptyId
	}
	return id
}

func with(b bits, v int) fieldValue {
	return fieldValue{bits: b, value: v}
}

func (g GeometryId) Kind() int {
	return g.field(KindMSB, KindLSB)
}

func (g GeometryId) is(det Detector, kind int) bool {
	return g.Detector() == det && g.Kind() == kind
}

// decode returns the field when the id has the detector and kind, else -1.
func (g GeometryId) decode(det Detector, kind int, b bits) int {
	if !g.is(det, kind) {
		return -1
	}
	return g.field(b.msb, b.lsb)
}

// Node tags a raw geometry tree node index.
func Node(index int) GeometryId {
	var id GeometryId
	if err := id.SetFieldSafe(index, nodeIndex.msb, nodeIndex.lsb); err != nil {
		logger.Warn(fmt.Sprintf("Cannot build node id: %v", err), "geomid")
		return EmptyId
	}
	return id
}

func NodeIndex(id GeometryId) int {
	if id.Detector() != ROOTGeoNodeId || id == EmptyId {
		return -1
	}
	return id.field(nodeIndex.msb, nodeIndex.lsb)
}

// P0D

func P0DDetector() GeometryId { return build(P0D, P0DKindDetector) }

func P0DSuperP0Dule(sP0Dule int) GeometryId {
	return build(P0D, P0DKindSuperP0Dule, with(p0dSuperP0Dule, sP0Dule))
}

func P0DP0Dule(p0dule int) GeometryId {
	return build(P0D, P0DKindP0Dule, with(p0dP0Dule, p0dule))
}

func P0DTarget(target int) GeometryId {
	return build(P0D, P0DKindTarget, with(p0dSequence, target))
}

func P0DECalRadiator(radiator int) GeometryId {
	return build(P0D, P0DKindECalRadiator, with(p0dSequence, radiator))
}

func P0DTargetRadiator(radiator int) GeometryId {
	return build(P0D, P0DKindTargetRadiator, with(p0dSequence, radiator))
}

func P0DBar(p0dule, layer, bar int) GeometryId {
	return build(P0D, P0DKindBar,
		with(p0dBarP0Dule, p0dule), with(p0dBarLayer, layer), with(p0dBarNumber, bar))
}

func IsP0D(id GeometryId) bool       { return id.Detector() == P0D }
func P0DGetP0Dule(id GeometryId) int { return id.decode(P0D, P0DKindP0Dule, p0dP0Dule) }
func P0DGetBarP0Dule(id GeometryId) int {
	return id.decode(P0D, P0DKindBar, p0dBarP0Dule)
}
func P0DGetBarLayer(id GeometryId) int  { return id.decode(P0D, P0DKindBar, p0dBarLayer) }
func P0DGetBarNumber(id GeometryId) int { return id.decode(P0D, P0DKindBar, p0dBarNumber) }

// TPC

func TPCModule(tpc int) GeometryId {
	return build(TPC, TPCKindModule, with(tpcModule, tpc))
}

func TPC1() GeometryId { return TPCModule(0) }
func TPC2() GeometryId { return TPCModule(1) }
func TPC3() GeometryId { return TPCModule(2) }

func TPCMicroMega(tpc, half, mm int) GeometryId {
	return build(TPC, TPCKindMicroMega, with(tpcTPC, tpc), with(tpcHalf, half), with(tpcMM, mm))
}

func TPCPad(tpc, half, mm, pad int) GeometryId {
	return build(TPC, TPCKindPad,
		with(tpcTPC, tpc), with(tpcHalf, half), with(tpcMM, mm), with(tpcPad, pad))
}

func IsTPC(id GeometryId) bool          { return id.Detector() == TPC }
func IsTPCMicroMega(id GeometryId) bool { return id.is(TPC, TPCKindMicroMega) }
func IsTPCPad(id GeometryId) bool       { return id.is(TPC, TPCKindPad) }
func TPCGetModule(id GeometryId) int    { return id.decode(TPC, TPCKindModule, tpcModule) }
func TPCGetPadNumber(id GeometryId) int { return id.decode(TPC, TPCKindPad, tpcPad) }

// TPCPadMicroMega returns the micromega holding a pad, or EmptyId when id
// is not a pad.
func TPCPadMicroMega(id GeometryId) GeometryId {
	if !IsTPCPad(id) {
		return EmptyId
	}
	return TPCMicroMega(id.field(tpcTPC.msb, tpcTPC.lsb),
		id.field(tpcHalf.msb, tpcHalf.lsb), id.field(tpcMM.msb, tpcMM.lsb))
}

// FGD

func FGDDetector(fgd int) GeometryId {
	if fgd < 0 || fgd > 1 {
		logger.Warn(fmt.Sprintf("FGD out of range [0,1]: %d", fgd), "geomid")
		return EmptyId
	}
	return build(FGD, FGDKindDetector, with(fgdNumber, fgd))
}

func FGD1() GeometryId { return FGDDetector(0) }
func FGD2() GeometryId { return FGDDetector(1) }

func FGDTarget(target int) GeometryId {
	return build(FGD, FGDKindTarget, with(fgdTarget, target))
}

func FGDLayer(fgd, module, layer int) GeometryId {
	return build(FGD, FGDKindLayer, with(fgdFGD, fgd), with(fgdModule, module), with(fgdLayer, layer))
}

func FGDBar(fgd, module, layer, bar int) GeometryId {
	return build(FGD, FGDKindBar,
		with(fgdFGD, fgd), with(fgdModule, module), with(fgdLayer, layer), with(fgdBar, bar))
}

func IsFGD(id GeometryId) bool          { return id.Detector() == FGD }
func FGDGetFGD(id GeometryId) int       { return id.decode(FGD, FGDKindDetector, fgdNumber) }
func FGDGetTarget(id GeometryId) int    { return id.decode(FGD, FGDKindTarget, fgdTarget) }
func FGDGetBarFGD(id GeometryId) int    { return id.decode(FGD, FGDKindBar, fgdFGD) }
func FGDGetBarModule(id GeometryId) int { return id.decode(FGD, FGDKindBar, fgdModule) }
func FGDGetBarLayer(id GeometryId) int  { return id.decode(FGD, FGDKindBar, fgdLayer) }
func FGDGetBarNumber(id GeometryId) int { return id.decode(FGD, FGDKindBar, fgdBar) }
func FGDGetLayerModule(id GeometryId) int {
	return id.decode(FGD, FGDKindLayer, fgdModule)
}
func FGDGetLayerNumber(id GeometryId) int { return id.decode(FGD, FGDKindLayer, fgdLayer) }

// ECal. The detector is one of DSECal, TECal or PECal.

func isECal(ecal Detector) bool {
	return ecal == DSECal || ecal == TECal || ecal == PECal
}

func ecalBuild(ecal Detector, kind int, fields ...fieldValue) GeometryId {
	if !isECal(ecal) {
		logger.Warn(fmt.Sprintf("Not an ECal detector: %s", ecal), "geomid")
		return EmptyId
	}
	return build(ecal, kind, fields...)
}

func ECalDetector(ecal Detector) GeometryId {
	return ecalBuild(ecal, ECalKindDetector)
}

func ECalContainer(ecal Detector, clam, module int) GeometryId {
	return ecalBuild(ecal, ECalKindContainer, with(ecalClam, clam), with(ecalModule, module))
}

func ECalModule(ecal Detector, clam, module int) GeometryId {
	return ecalBuild(ecal, ECalKindModule, with(ecalClam, clam), with(ecalModule, module))
}

func ECalLayer(ecal Detector, clam, module, layer int) GeometryId {
	return ecalBuild(ecal, ECalKindLayer,
		with(ecalClam, clam), with(ecalModule, module), with(ecalLayer, layer))
}

func ECalRadiator(ecal Detector, clam, module, radiator int) GeometryId {
	return ecalBuild(ecal, ECalKindRadiator,
		with(ecalClam, clam), with(ecalModule, module), with(ecalLayer, radiator))
}

func ECalBar(ecal Detector, clam, module, layer, bar int) GeometryId {
	return ecalBuild(ecal, ECalKindBar,
		with(ecalClam, clam), with(ecalModule, module), with(ecalLayer, layer), with(ecalBar, bar))
}

func IsECal(id GeometryId) bool { return isECal(id.Detector()) }

func ECalGetBarLayer(id GeometryId) int {
	if !IsECal(id) {
		return -1
	}
	return id.decode(id.Detector(), ECalKindBar, ecalLayer)
}

func ECalGetBarNumber(id GeometryId) int {
	if !IsECal(id) {
		return -1
	}
	return id.decode(id.Detector(), ECalKindBar, ecalBar)
}

// SMRD

func SMRDModule(clam, yoke, layer, slot int) GeometryId {
	return build(SMRD, SMRDKindModule,
		with(smrdClam, clam), with(smrdYoke, yoke), with(smrdLayer, layer), with(smrdSlot, slot))
}

func SMRDBar(clam, yoke, layer, slot, bar int) GeometryId {
	return build(SMRD, SMRDKindBar,
		with(smrdClam, clam), with(smrdYoke, yoke), with(smrdLayer, layer),
		with(smrdSlot, slot), with(smrdBar, bar))
}

func IsSMRD(id GeometryId) bool          { return id.Detector() == SMRD }
func SMRDGetBarClam(id GeometryId) int   { return id.decode(SMRD, SMRDKindBar, smrdClam) }
func SMRDGetBarYoke(id GeometryId) int   { return id.decode(SMRD, SMRDKindBar, smrdYoke) }
func SMRDGetBarNumber(id GeometryId) int { return id.decode(SMRD, SMRDKindBar, smrdBar) }
