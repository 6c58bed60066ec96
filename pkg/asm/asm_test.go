package asm

import (
	"reflect"
	"strings"
	"testing"

	"goemu/pkg/chip8"
)

// encodeWords converts opcode words to big-endian bytes.
func encodeWords(words ...uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		out[i*2] = byte(w >> 8)
		out[i*2+1] = byte(w)
	}
	return out
}

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", true},
		{"_abc", true},
		{"abc1", true},
		{"1abc", false},
		{"", false},
		{"ab-c", false},
	}
	for _, tc := range tests {
		if got := isIdentifier(tc.input); got != tc.want {
			t.Errorf("isIdentifier(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}

	if got := normalizeLabel("label"); got != "LABEL" {
		t.Errorf("normalizeLabel(\"label\") = %q; want \"LABEL\"", got)
	}

	regTests := []struct {
		token string
		want  uint16
		ok    bool
	}{
		{"V0", 0, true},
		{"vf", 15, true},
		{"VA", 10, true},
		{"VG", 0, false},
		{"V10", 0, false},
		{"R1", 0, false},
	}
	for _, tc := range regTests {
		got, ok := register(tc.token)
		if got != tc.want || ok != tc.ok {
			t.Errorf("register(%q) = %d, %v; want %d, %v", tc.token, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    parsedLine
		wantErr bool
	}{
		{
			"LD V0, 5",
			parsedLine{lineNo: 1, mnemonic: "LD", operands: []string{"V0", "5"}},
			false,
		},
		{
			"  add v0, v1  ; comment",
			parsedLine{lineNo: 1, mnemonic: "ADD", operands: []string{"v0", "v1"}},
			false,
		},
		{
			"loop: JP loop // spin",
			parsedLine{lineNo: 1, labels: []string{"loop"}, mnemonic: "JP", operands: []string{"loop"}},
			false,
		},
		{
			"a: b:",
			parsedLine{lineNo: 1, labels: []string{"a", "b"}},
			false,
		},
		{
			"LD [I], V3",
			parsedLine{lineNo: 1, mnemonic: "LD", operands: []string{"[I]", "V3"}},
			false,
		},
		{
			"1bad: CLS",
			parsedLine{},
			true,
		},
		{
			".org",
			parsedLine{},
			true,
		},
	}

	for _, tc := range tests {
		got, err := parseLine(tc.line, 1)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseLine(%q) error = %v; wantErr %v", tc.line, err, tc.wantErr)
			continue
		}
		if tc.wantErr {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseLine(%q) = %+v; want %+v", tc.line, got, tc.want)
		}
	}
}

func TestAssembleInstructions(t *testing.T) {
	tests := []struct {
		code string
		want uint16
	}{
		{"CLS", 0x00E0},
		{"RET", 0x00EE},
		{"JP $234", 0x1234},
		{"JP V0, $300", 0xB300},
		{"CALL 0xABC", 0x2ABC},
		{"SE V1, 5", 0x3105},
		{"SE V1, V2", 0x5120},
		{"SNE V1, $FF", 0x41FF},
		{"SNE V1, V2", 0x9120},
		{"LD V3, 0b1010", 0x630A},
		{"LD V3, V4", 0x8340},
		{"LD V3, DT", 0xF307},
		{"LD V3, K", 0xF30A},
		{"LD V3, [I]", 0xF365},
		{"LD I, $300", 0xA300},
		{"LD DT, V5", 0xF515},
		{"LD ST, V5", 0xF518},
		{"LD F, V5", 0xF529},
		{"LD B, V5", 0xF533},
		{"LD [I], V5", 0xF555},
		{"ADD V1, 1", 0x7101},
		{"ADD V1, V2", 0x8124},
		{"ADD I, V2", 0xF21E},
		{"OR V1, V2", 0x8121},
		{"AND V1, V2", 0x8122},
		{"XOR V1, V2", 0x8123},
		{"SUB V1, V2", 0x8125},
		{"SUBN V1, V2", 0x8127},
		{"SHR V1", 0x8116},
		{"SHR V1, V2", 0x8126},
		{"SHL V1, V2", 0x812E},
		{"RND V7, $0F", 0xC70F},
		{"DRW V1, V2, 15", 0xD12F},
		{"SKP VA", 0xEA9E},
		{"SKNP VA", 0xEAA1},
	}

	for _, tc := range tests {
		got, _, err := Assemble(tc.code)
		if err != nil {
			t.Errorf("Assemble(%q) error: %v", tc.code, err)
			continue
		}
		if want := encodeWords(tc.want); !reflect.DeepEqual(got, want) {
			t.Errorf("Assemble(%q) = % X; want % X", tc.code, got, want)
		}
	}
}

func TestAssembleLabelsAndDirectives(t *testing.T) {
	code := `
start:
    LD V0, 0
loop:
    ADD V0, 1
    SE V0, 10
    JP loop
    LD I, sprite
    JP start
sprite: .BYTE $F0, $90, $F0
        .WORD $1234
`
	got, _, err := Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	want := append(encodeWords(0x6000, 0x7001, 0x300A, 0x1202, 0xA20C, 0x1200),
		0xF0, 0x90, 0xF0, 0x12, 0x34)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Assemble = % X; want % X", got, want)
	}
}

func TestAssembleOrigin(t *testing.T) {
	got, _, err := NewAssembler(0x000).Assemble("JP end\n.ORG 6\nend: JP end")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	want := encodeWords(0x1006, 0x0000, 0x0000, 0x1006)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Assemble = % X; want % X", got, want)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unknown mnemonic", "FOO V1", "unknown instruction"},
		{"bad register", "SKP R2", "invalid register"},
		{"byte range", "LD V1, 256", "out of range"},
		{"address range", "JP $1000", "out of range"},
		{"nibble range", "DRW V1, V2, 16", "out of range"},
		{"operand count", "CLS V1", "expects 0 operands"},
		{"undefined label", "JP nowhere", "undefined label"},
		{"duplicate label", "a: CLS\na: CLS", "duplicate label"},
		{"backward org", ".ORG $300\n.ORG $200", "backward"},
		{"jp offset register", "JP V1, $300", "only supports V0"},
		{"ld destination", "LD K, V1", "invalid LD destination"},
		{"too large", ".ORG $FFF\nCLS", "too large"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Assemble(tc.code)
			if err == nil {
				t.Fatalf("Assemble(%q) succeeded; want error containing %q", tc.code, tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Assemble(%q) error = %q; want it to contain %q", tc.code, err, tc.want)
			}
		})
	}
}

// Every decodable word disassembles to text that assembles back to it.
func TestDisassemblyRoundTrip(t *testing.T) {
	for hi := 0; hi < 0x10; hi++ {
		for _, lo := range []uint16{0x000, 0x0E0, 0x0EE, 0x123, 0x9E5, 0xA1F, 0x507, 0x60A, 0x715, 0x818, 0x91E, 0xA29, 0xB33, 0xC55, 0xD65, 0xE0E, 0xF0F, 0x19E, 0x2A1} {
			word := uint16(hi)<<12 | lo
			in, _ := chip8.Decode(word)
			text := in.String()

			got, _, err := Assemble(text)
			if err != nil {
				t.Errorf("Assemble(%q) for %04X error: %v", text, word, err)
				continue
			}
			if want := encodeWords(word); !reflect.DeepEqual(got, want) {
				t.Errorf("Assemble(%q) = % X; want % X", text, got, want)
			}
		}
	}
}
