// Package asm implements a two-pass CHIP-8 assembler using the Cowgod
// mnemonics, for example:
//
//	start:  LD V0, $05
//	        LD F, V0
//	        DRW V1, V2, 5
//	        JP start
//
// Numbers may be written as $FF, 0xFF, 0b1010 or in decimal. Directives are
// .ORG addr, .BYTE b... and .WORD w.... Comments start with ; or //.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// DefaultOrigin is the address the first assembled byte is placed at.
const DefaultOrigin = 0x200

const maxAddress = 0xFFF

// register-register ALU forms, 8XYn
var aluOps = map[string]uint16{
	"OR":   0x8001,
	"AND":  0x8002,
	"XOR":  0x8003,
	"SUB":  0x8005,
	"SUBN": 0x8007,
}

// key skip forms, EXnn
var keyOps = map[string]uint16{
	"SKP":  0xE09E,
	"SKNP": 0xE0A1,
}

type Assembler struct {
	labels map[string]uint16
	origin uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

// NewAssembler returns an assembler placing code at origin.
func NewAssembler(origin uint16) *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
		origin: origin,
	}
}

// Assemble assembles code at DefaultOrigin. It returns the program bytes,
// to be loaded at the origin, and a map from address to source line.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	return NewAssembler(DefaultOrigin).Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

// pass1 assigns addresses to labels.
func (a *Assembler) pass1(lines []string) error {
	address := uint32(a.origin)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = uint16(address)
		}

		var size uint32
		switch p.mnemonic {
		case "":
			continue
		case ".ORG":
			target, err := parseNumber(p.operands[0])
			if err != nil || target > maxAddress {
				return fmt.Errorf("invalid .ORG value on line %d: %s", lineNo, p.operands[0])
			}
			if target < address {
				return fmt.Errorf("cannot move origin backward on line %d", lineNo)
			}
			address = target
			continue
		case ".BYTE":
			size = uint32(len(p.operands))
		case ".WORD":
			size = 2 * uint32(len(p.operands))
		default:
			size = 2
		}

		if address+size > maxAddress+1 {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
		address += size
	}

	return nil
}

// pass2 encodes every line.
func (a *Assembler) pass2(lines []string) ([]byte, map[uint16]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint16]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		address := a.origin + uint16(len(program))
		ops := p.operands

		switch p.mnemonic {
		case ".ORG":
			target, _ := parseNumber(ops[0])
			padding := int(target) - int(address)
			program = append(program, make([]byte, padding)...)
			continue

		case ".BYTE":
			if len(ops) == 0 {
				return nil, nil, fmt.Errorf(".BYTE expects at least one operand on line %d", lineNo)
			}
			sourceMap[address] = lineNo
			for _, op := range ops {
				val, err := a.parseValue(op, 0xFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(val))
			}
			continue

		case ".WORD":
			if len(ops) == 0 {
				return nil, nil, fmt.Errorf(".WORD expects at least one operand on line %d", lineNo)
			}
			sourceMap[address] = lineNo
			for _, op := range ops {
				val, err := a.parseValue(op, 0xFFFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(val>>8), byte(val))
			}
			continue
		}

		word, err := a.encode(p.mnemonic, ops, lineNo)
		if err != nil {
			return nil, nil, err
		}
		sourceMap[address] = lineNo
		program = append(program, byte(word>>8), byte(word))
	}

	return program, sourceMap, nil
}

func (a *Assembler) encode(mnemonic string, ops []string, lineNo int) (uint16, error) {
	expect := func(n int) error {
		if len(ops) != n {
			return fmt.Errorf("%s expects %d operands on line %d", mnemonic, n, lineNo)
		}
		return nil
	}

	switch mnemonic {
	case "CLS", "RET":
		if err := expect(0); err != nil {
			return 0, err
		}
		if mnemonic == "CLS" {
			return 0x00E0, nil
		}
		return 0x00EE, nil

	case "JP":
		if len(ops) == 2 {
			if !strings.EqualFold(ops[0], "V0") {
				return 0, fmt.Errorf("JP with offset only supports V0 on line %d", lineNo)
			}
			nnn, err := a.parseValue(ops[1], maxAddress, lineNo)
			return 0xB000 | nnn, err
		}
		if err := expect(1); err != nil {
			return 0, err
		}
		nnn, err := a.parseValue(ops[0], maxAddress, lineNo)
		return 0x1000 | nnn, err

	case "CALL":
		if err := expect(1); err != nil {
			return 0, err
		}
		nnn, err := a.parseValue(ops[0], maxAddress, lineNo)
		return 0x2000 | nnn, err

	case "SE", "SNE":
		if err := expect(2); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		if y, ok := register(ops[1]); ok {
			if mnemonic == "SE" {
				return 0x5000 | x<<8 | y<<4, nil
			}
			return 0x9000 | x<<8 | y<<4, nil
		}
		kk, err := a.parseValue(ops[1], 0xFF, lineNo)
		if mnemonic == "SE" {
			return 0x3000 | x<<8 | kk, err
		}
		return 0x4000 | x<<8 | kk, err

	case "LD":
		if err := expect(2); err != nil {
			return 0, err
		}
		return a.encodeLoad(ops[0], ops[1], lineNo)

	case "ADD":
		if err := expect(2); err != nil {
			return 0, err
		}
		if strings.EqualFold(ops[0], "I") {
			x, err := parseRegister(ops[1], lineNo)
			return 0xF01E | x<<8, err
		}
		x, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		if y, ok := register(ops[1]); ok {
			return 0x8004 | x<<8 | y<<4, nil
		}
		kk, err := a.parseValue(ops[1], 0xFF, lineNo)
		return 0x7000 | x<<8 | kk, err

	case "SHR", "SHL":
		if len(ops) != 1 && len(ops) != 2 {
			return 0, fmt.Errorf("%s expects 1 or 2 operands on line %d", mnemonic, lineNo)
		}
		x, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		y := x
		if len(ops) == 2 {
			if y, err = parseRegister(ops[1], lineNo); err != nil {
				return 0, err
			}
		}
		if mnemonic == "SHR" {
			return 0x8006 | x<<8 | y<<4, nil
		}
		return 0x800E | x<<8 | y<<4, nil

	case "RND":
		if err := expect(2); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		kk, err := a.parseValue(ops[1], 0xFF, lineNo)
		return 0xC000 | x<<8 | kk, err

	case "DRW":
		if err := expect(3); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		y, err := parseRegister(ops[1], lineNo)
		if err != nil {
			return 0, err
		}
		n, err := a.parseValue(ops[2], 0xF, lineNo)
		return 0xD000 | x<<8 | y<<4 | n, err
	}

	if base, ok := aluOps[mnemonic]; ok {
		if err := expect(2); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		y, err := parseRegister(ops[1], lineNo)
		return base | x<<8 | y<<4, err
	}

	if base, ok := keyOps[mnemonic]; ok {
		if err := expect(1); err != nil {
			return 0, err
		}
		x, err := parseRegister(ops[0], lineNo)
		return base | x<<8, err
	}

	return 0, fmt.Errorf("unknown instruction on line %d: %s", lineNo, mnemonic)
}

// encodeLoad handles the many forms of LD.
func (a *Assembler) encodeLoad(dst, src string, lineNo int) (uint16, error) {
	if x, ok := register(dst); ok {
		if y, ok := register(src); ok {
			return 0x8000 | x<<8 | y<<4, nil
		}
		switch strings.ToUpper(src) {
		case "DT":
			return 0xF007 | x<<8, nil
		case "K":
			return 0xF00A | x<<8, nil
		case "[I]":
			return 0xF065 | x<<8, nil
		}
		kk, err := a.parseValue(src, 0xFF, lineNo)
		return 0x6000 | x<<8 | kk, err
	}

	var base uint16
	switch strings.ToUpper(dst) {
	case "I":
		nnn, err := a.parseValue(src, maxAddress, lineNo)
		return 0xA000 | nnn, err
	case "DT":
		base = 0xF015
	case "ST":
		base = 0xF018
	case "F":
		base = 0xF029
	case "B":
		base = 0xF033
	case "[I]":
		base = 0xF055
	default:
		return 0, fmt.Errorf("invalid LD destination '%s' on line %d", dst, lineNo)
	}
	x, err := parseRegister(src, lineNo)
	return base | x<<8, err
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}
		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	if p.mnemonic == ".ORG" && len(p.operands) != 1 {
		return p, fmt.Errorf(".ORG expects exactly one operand on line %d", lineNo)
	}

	return p, nil
}

func stripComments(line string) string {
	cut := strings.Index(line, ";")
	if slash := strings.Index(line, "//"); slash >= 0 && (cut == -1 || slash < cut) {
		cut = slash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

// register parses V0-VF.
func register(token string) (uint16, bool) {
	if len(token) != 2 || (token[0] != 'V' && token[0] != 'v') {
		return 0, false
	}
	n, err := strconv.ParseUint(token[1:], 16, 8)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

func parseRegister(token string, lineNo int) (uint16, error) {
	if r, ok := register(token); ok {
		return r, nil
	}
	return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
}

func parseNumber(token string) (uint32, error) {
	if rest, ok := strings.CutPrefix(token, "$"); ok {
		token = "0x" + rest
	}
	v, err := strconv.ParseUint(token, 0, 32)
	return uint32(v), err
}

// parseValue resolves a number or label and checks it against limit.
func (a *Assembler) parseValue(token string, limit uint16, lineNo int) (uint16, error) {
	if value, err := parseNumber(token); err == nil {
		if value > uint32(limit) {
			return 0, fmt.Errorf("value out of range on line %d: %s", lineNo, token)
		}
		return uint16(value), nil
	}

	if addr, ok := a.labels[normalizeLabel(token)]; ok {
		if addr > limit {
			return 0, fmt.Errorf("label '%s' out of range on line %d", token, lineNo)
		}
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid value '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
