package testutil

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ImplementationSlot is the ERC-1967 implementation slot
var ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")

// EVM opcodes used by the fixtures
const (
	opSTOP           = 0x00
	opEQ             = 0x14
	opISZERO         = 0x15
	opSHR            = 0x1c
	opCALLDATALOAD   = 0x35
	opCALLDATASIZE   = 0x36
	opCALLDATACOPY   = 0x37
	opCODESIZE       = 0x38
	opCODECOPY       = 0x39
	opRETURNDATASIZE = 0x3d
	opRETURNDATACOPY = 0x3e
	opPOP            = 0x50
	opMLOAD          = 0x51
	opMSTORE         = 0x52
	opSLOAD          = 0x54
	opSSTORE         = 0x55
	opJUMPI          = 0x57
	opGAS            = 0x5a
	opJUMPDEST       = 0x5b
	opPUSH1          = 0x60
	opPUSH2          = 0x61
	opDUP1           = 0x80
	opDUP3           = 0x82
	opSWAP1          = 0x90
	opSUB            = 0x03
	opRETURN         = 0xf3
	opDELEGATECALL   = 0xf4
	opREVERT         = 0xfd
)

// assembler builds bytecode with forward jump labels resolved on Bytes
type assembler struct {
	code   []byte
	labels map[string]int
	fixups map[int]string
}

func newAssembler() *assembler {
	return &assembler{labels: map[string]int{}, fixups: map[int]string{}}
}

func (a *assembler) op(ops ...byte) *assembler {
	a.code = append(a.code, ops...)
	return a
}

// push emits the shortest PUSHn for data
func (a *assembler) push(data []byte) *assembler {
	if len(data) == 0 || len(data) > 32 {
		panic(fmt.Sprintf("push of %d bytes", len(data)))
	}
	a.code = append(a.code, byte(opPUSH1+len(data)-1))
	a.code = append(a.code, data...)
	return a
}

func (a *assembler) push1(b byte) *assembler {
	return a.op(opPUSH1, b)
}

func (a *assembler) pushLabel(name string) *assembler {
	a.code = append(a.code, opPUSH2)
	a.fixups[len(a.code)] = name
	a.code = append(a.code, 0, 0)
	return a
}

func (a *assembler) label(name string) *assembler {
	a.labels[name] = len(a.code)
	return a.op(opJUMPDEST)
}

func (a *assembler) returnWord() *assembler {
	// MSTORE(0, top); RETURN(0, 32)
	return a.push1(0).op(opMSTORE).push1(0x20).push1(0).op(opRETURN)
}

func (a *assembler) revert() *assembler {
	return a.push1(0).op(opDUP1, opREVERT)
}

func (a *assembler) Bytes() []byte {
	out := append([]byte(nil), a.code...)
	for pos, name := range a.fixups {
		target, ok := a.labels[name]
		if !ok {
			panic("undefined label " + name)
		}
		out[pos] = byte(target >> 8)
		out[pos+1] = byte(target)
	}
	return out
}

// CreationCode wraps runtime in init code that returns it. Anything
// appended after (constructor arguments) is ignored.
func CreationCode(runtime []byte) []byte {
	const header = 13
	n := len(runtime)
	code := []byte{
		opPUSH2, byte(n >> 8), byte(n),
		opDUP1,
		opPUSH2, 0, header,
		opPUSH1, 0,
		opCODECOPY,
		opPUSH1, 0,
		opRETURN,
	}
	return append(code, runtime...)
}

// RevertingCreationCode always reverts on deployment
func RevertingCreationCode() []byte {
	return []byte{opPUSH1, 0, opDUP1, opREVERT}
}

// ImplementationSpec describes a UUPS implementation fixture
type ImplementationSpec struct {
	ABI abi.ABI
	// Initializer is the method whose argument word InitArgIndex is stored in slot 0
	Initializer  string
	InitArgIndex int
	// Getter returns slot 0
	Getter string
	// Version, when set, names a method returning VersionValue
	Version      string
	VersionValue byte
}

// ImplementationRuntime assembles a UUPS-style implementation:
// an initializer guarded by slot 1, a getter for slot 0, upgradeTo and
// upgradeToAndCall writing the ERC-1967 slot, and proxiableUUID.
func ImplementationRuntime(spec ImplementationSpec) []byte {
	a := newAssembler()

	// selector
	a.push1(0).op(opCALLDATALOAD).push1(0xe0).op(opSHR)

	dispatch := func(method, label string) {
		m, ok := spec.ABI.Methods[method]
		if !ok {
			return
		}
		a.op(opDUP1).push(m.ID).op(opEQ).pushLabel(label).op(opJUMPI)
	}
	dispatch(spec.Initializer, "init")
	dispatch(spec.Getter, "get")
	dispatch("upgradeTo", "upgrade")
	dispatch("upgradeToAndCall", "upgrade")
	dispatch("proxiableUUID", "uuid")
	if spec.Version != "" {
		dispatch(spec.Version, "version")
	}
	a.revert()

	a.label("init")
	a.push1(1).op(opSLOAD).pushLabel("fail").op(opJUMPI)
	a.push1(1).push1(1).op(opSSTORE)
	a.push1(byte(4 + 32*spec.InitArgIndex)).op(opCALLDATALOAD).push1(0).op(opSSTORE)
	a.op(opSTOP)

	a.label("get")
	a.push1(0).op(opSLOAD).returnWord()

	a.label("upgrade")
	a.push1(4).op(opCALLDATALOAD).push(ImplementationSlot.Bytes()).op(opSSTORE)
	a.op(opSTOP)

	a.label("uuid")
	a.push(ImplementationSlot.Bytes()).returnWord()

	a.label("version")
	a.push1(spec.VersionValue).returnWord()

	a.label("fail")
	a.revert()

	return a.Bytes()
}

// ProxyRuntime delegates every call to the address in the ERC-1967 slot
func ProxyRuntime() []byte {
	a := newAssembler()
	a.op(opCALLDATASIZE).push1(0).op(opDUP1, opCALLDATACOPY)
	a.push1(0).push1(0).op(opCALLDATASIZE).push1(0)
	a.push(ImplementationSlot.Bytes()).op(opSLOAD)
	a.op(opGAS, opDELEGATECALL)
	a.op(opRETURNDATASIZE).push1(0).op(opDUP1, opRETURNDATACOPY)
	a.pushLabel("ok").op(opJUMPI)
	a.op(opRETURNDATASIZE).push1(0).op(opREVERT)
	a.label("ok")
	a.op(opRETURNDATASIZE).push1(0).op(opRETURN)
	return a.Bytes()
}

// ProxyCreationCode is an ERC1967Proxy(address logic, bytes data) constructor:
// it stores logic in the implementation slot and delegatecalls data when non-empty.
func ProxyCreationCode() []byte {
	runtime := ProxyRuntime()

	build := func(initLen, runtimeOffset int) *assembler {
		a := newAssembler()
		// copy constructor arguments to memory 0
		a.op(opPUSH2, byte(initLen>>8), byte(initLen))
		a.op(opDUP1, opCODESIZE, opSUB, opSWAP1).push1(0).op(opCODECOPY)
		// implementation slot = logic
		a.push1(0).op(opMLOAD).push(ImplementationSlot.Bytes()).op(opSSTORE)
		// delegatecall(logic, data) when data is non-empty
		a.push1(0x40).op(opMLOAD, opDUP1, opISZERO).pushLabel("skip").op(opJUMPI)
		a.push1(0).push1(0).op(opDUP3).push1(0x60).push1(0).op(opMLOAD, opGAS, opDELEGATECALL)
		a.op(opISZERO).pushLabel("fail").op(opJUMPI)
		a.label("skip")
		a.op(opPOP)
		// return runtime
		a.push1(byte(len(runtime))).op(opDUP1)
		a.op(opPUSH2, byte(runtimeOffset>>8), byte(runtimeOffset)).push1(0).op(opCODECOPY)
		a.push1(0).op(opRETURN)
		a.label("fail")
		a.op(opRETURNDATASIZE).push1(0).op(opDUP1, opRETURNDATACOPY)
		a.op(opRETURNDATASIZE).push1(0).op(opREVERT)
		return a
	}

	// the header length does not depend on the values pushed, so size it once
	headerLen := len(build(0, 0).Bytes())
	header := build(headerLen+len(runtime), headerLen).Bytes()
	return append(header, runtime...)
}

// ParseABI parses an ABI literal, panicking on malformed fixtures
func ParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
