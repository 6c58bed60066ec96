package chip8

import (
	"errors"
	"fmt"
)

// ErrUnknownOpcode is returned when a word does not decode to a supported
// instruction.
var ErrUnknownOpcode = errors.New("unknown opcode")

// Op identifies a decoded instruction.
type Op uint8

const (
	OpCLS    Op = iota + 1 // 00E0
	OpRET                  // 00EE
	OpJP                   // 1NNN
	OpCALL                 // 2NNN
	OpSEImm                // 3XKK
	OpSNEImm               // 4XKK
	OpSEReg                // 5XY0
	OpLDImm                // 6XKK
	OpADDImm               // 7XKK
	OpLDReg                // 8XY0
	OpOR                   // 8XY1
	OpAND                  // 8XY2
	OpXOR                  // 8XY3
	OpADDReg               // 8XY4
	OpSUB                  // 8XY5
	OpSHR                  // 8XY6
	OpSUBN                 // 8XY7
	OpSHL                  // 8XYE
	OpSNEReg               // 9XY0
	OpLDI                  // ANNN
	OpJPV0                 // BNNN
	OpRND                  // CXKK
	OpDRW                  // DXYN
	OpSKP                  // EX9E
	OpSKNP                 // EXA1
	OpLDVxDT               // FX07
	OpLDVxK                // FX0A
	OpLDDTVx               // FX15
	OpLDSTVx               // FX18
	OpADDI                 // FX1E
	OpLDF                  // FX29
	OpLDB                  // FX33
	OpLDIVx                // FX55
	OpLDVxI                // FX65
)

// Instruction is a decoded opcode word with all operand fields extracted.
// Fields not used by Op are still populated from the raw word.
type Instruction struct {
	Op  Op
	X   uint8
	Y   uint8
	N   uint8
	KK  uint8
	NNN uint16
	Raw uint16
}

// Decode splits word into nibbles and maps it to an instruction.
func Decode(word uint16) (Instruction, error) {
	in := Instruction{
		X:   uint8(word>>8) & 0xF,
		Y:   uint8(word>>4) & 0xF,
		N:   uint8(word) & 0xF,
		KK:  uint8(word),
		NNN: word & 0x0FFF,
		Raw: word,
	}

	switch word >> 12 {
	case 0x0:
		switch word {
		case 0x00E0:
			in.Op = OpCLS
		case 0x00EE:
			in.Op = OpRET
		}
	case 0x1:
		in.Op = OpJP
	case 0x2:
		in.Op = OpCALL
	case 0x3:
		in.Op = OpSEImm
	case 0x4:
		in.Op = OpSNEImm
	case 0x5:
		if in.N == 0 {
			in.Op = OpSEReg
		}
	case 0x6:
		in.Op = OpLDImm
	case 0x7:
		in.Op = OpADDImm
	case 0x8:
		switch in.N {
		case 0x0:
			in.Op = OpLDReg
		case 0x1:
			in.Op = OpOR
		case 0x2:
			in.Op = OpAND
		case 0x3:
			in.Op = OpXOR
		case 0x4:
			in.Op = OpADDReg
		case 0x5:
			in.Op = OpSUB
		case 0x6:
			in.Op = OpSHR
		case 0x7:
			in.Op = OpSUBN
		case 0xE:
			in.Op = OpSHL
		}
	case 0x9:
		if in.N == 0 {
			in.Op = OpSNEReg
		}
	case 0xA:
		in.Op = OpLDI
	case 0xB:
		in.Op = OpJPV0
	case 0xC:
		in.Op = OpRND
	case 0xD:
		in.Op = OpDRW
	case 0xE:
		switch in.KK {
		case 0x9E:
			in.Op = OpSKP
		case 0xA1:
			in.Op = OpSKNP
		}
	case 0xF:
		switch in.KK {
		case 0x07:
			in.Op = OpLDVxDT
		case 0x0A:
			in.Op = OpLDVxK
		case 0x15:
			in.Op = OpLDDTVx
		case 0x18:
			in.Op = OpLDSTVx
		case 0x1E:
			in.Op = OpADDI
		case 0x29:
			in.Op = OpLDF
		case 0x33:
			in.Op = OpLDB
		case 0x55:
			in.Op = OpLDIVx
		case 0x65:
			in.Op = OpLDVxI
		}
	}

	if in.Op == 0 {
		return in, fmt.Errorf("%w: %04X", ErrUnknownOpcode, word)
	}
	return in, nil
}

// String returns the instruction in assembler syntax, for example
// "LD V1, $2A" or "DRW V0, V1, 5". The output is accepted by pkg/asm.
func (in Instruction) String() string {
	switch in.Op {
	case OpCLS:
		return "CLS"
	case OpRET:
		return "RET"
	case OpJP:
		return fmt.Sprintf("JP $%03X", in.NNN)
	case OpCALL:
		return fmt.Sprintf("CALL $%03X", in.NNN)
	case OpSEImm:
		return fmt.Sprintf("SE V%X, $%02X", in.X, in.KK)
	case OpSNEImm:
		return fmt.Sprintf("SNE V%X, $%02X", in.X, in.KK)
	case OpSEReg:
		return fmt.Sprintf("SE V%X, V%X", in.X, in.Y)
	case OpLDImm:
		return fmt.Sprintf("LD V%X, $%02X", in.X, in.KK)
	case OpADDImm:
		return fmt.Sprintf("ADD V%X, $%02X", in.X, in.KK)
	case OpLDReg:
		return fmt.Sprintf("LD V%X, V%X", in.X, in.Y)
	case OpOR:
		return fmt.Sprintf("OR V%X, V%X", in.X, in.Y)
	case OpAND:
		return fmt.Sprintf("AND V%X, V%X", in.X, in.Y)
	case OpXOR:
		return fmt.Sprintf("XOR V%X, V%X", in.X, in.Y)
	case OpADDReg:
		return fmt.Sprintf("ADD V%X, V%X", in.X, in.Y)
	case OpSUB:
		return fmt.Sprintf("SUB V%X, V%X", in.X, in.Y)
	case OpSHR:
		return fmt.Sprintf("SHR V%X, V%X", in.X, in.Y)
	case OpSUBN:
		return fmt.Sprintf("SUBN V%X, V%X", in.X, in.Y)
	case OpSHL:
		return fmt.Sprintf("SHL V%X, V%X", in.X, in.Y)
	case OpSNEReg:
		return fmt.Sprintf("SNE V%X, V%X", in.X, in.Y)
	case OpLDI:
		return fmt.Sprintf("LD I, $%03X", in.NNN)
	case OpJPV0:
		return fmt.Sprintf("JP V0, $%03X", in.NNN)
	case OpRND:
		return fmt.Sprintf("RND V%X, $%02X", in.X, in.KK)
	case OpDRW:
		return fmt.Sprintf("DRW V%X, V%X, %d", in.X, in.Y, in.N)
	case OpSKP:
		return fmt.Sprintf("SKP V%X", in.X)
	case OpSKNP:
		return fmt.Sprintf("SKNP V%X", in.X)
	case OpLDVxDT:
		return fmt.Sprintf("LD V%X, DT", in.X)
	case OpLDVxK:
		return fmt.Sprintf("LD V%X, K", in.X)
	case OpLDDTVx:
		return fmt.Sprintf("LD DT, V%X", in.X)
	case OpLDSTVx:
		return fmt.Sprintf("LD ST, V%X", in.X)
	case OpADDI:
		return fmt.Sprintf("ADD I, V%X", in.X)
	case OpLDF:
		return fmt.Sprintf("LD F, V%X", in.X)
	case OpLDB:
		return fmt.Sprintf("LD B, V%X", in.X)
	case OpLDIVx:
		return fmt.Sprintf("LD [I], V%X", in.X)
	case OpLDVxI:
		return fmt.Sprintf("LD V%X, [I]", in.X)
	}
	return fmt.Sprintf(".WORD $%04X", in.Raw)
}

// Disassemble decodes a program image starting at origin and returns one
// line per word. Words that do not decode are emitted as .WORD directives.
func Disassemble(program []byte, origin uint32) []string {
	lines := make([]string, 0, len(program)/2+1)
	for i := 0; i+1 < len(program); i += 2 {
		word := uint16(program[i])<<8 | uint16(program[i+1])
		in, _ := Decode(word)
		lines = append(lines, fmt.Sprintf("%04X  %04X  %s", origin+uint32(i), word, in))
	}
	if len(program)%2 == 1 {
		last := len(program) - 1
		lines = append(lines, fmt.Sprintf("%04X  %02X    .BYTE $%02X", origin+uint32(last), program[last], program[last]))
	}
	return lines
}
