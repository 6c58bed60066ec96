package utils

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGetPathInfo(t *testing.T) {
	full, dir, err := GetPathInfo("roms/../roms/pong.ch8")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(full) {
		t.Errorf("GetPathInfo full path %q is not absolute", full)
	}
	if filepath.Base(full) != "pong.ch8" || filepath.Base(dir) != "roms" {
		t.Errorf("GetPathInfo = (%q, %q); want .../roms/pong.ch8 and .../roms", full, dir)
	}
}

func TestResolveROM(t *testing.T) {
	dir := t.TempDir()
	rom := filepath.Join(dir, "game.ch8")
	if err := os.WriteFile(rom, []byte{0x00, 0xE0}, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveROM(rom)
	if err != nil || got != rom {
		t.Errorf("ResolveROM(%q) = %q, %v; want %q, nil", rom, got, err, rom)
	}
	if _, err := ResolveROM(dir); !errors.Is(err, ErrNotAFile) {
		t.Errorf("ResolveROM(dir) error = %v; want ErrNotAFile", err)
	}
	if _, err := ResolveROM(filepath.Join(dir, "missing.ch8")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ResolveROM(missing) error = %v; want ErrNotExist", err)
	}

	states, err := StateDir(rom)
	if err != nil || states != filepath.Join(dir, "states") {
		t.Errorf("StateDir(%q) = %q, %v; want %q", rom, states, err, filepath.Join(dir, "states"))
	}
}

func TestIsBytePusherROM(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"demo.bp", true},
		{"demo.BytePusher", true},
		{"pong.ch8", false},
		{"noext", false},
	}
	for _, tc := range tests {
		if got := IsBytePusherROM(tc.path); got != tc.want {
			t.Errorf("IsBytePusherROM(%q) = %v; want %v", tc.path, got, tc.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, ext, want string
	}{
		{"prog.asm", ".ch8", "prog.ch8"},
		{"dir/prog", ".ch8", "dir/prog.ch8"},
		{"shot.ch8", ".png", "shot.png"},
	}
	for _, tc := range tests {
		if got := OutputPath(tc.in, tc.ext); got != tc.want {
			t.Errorf("OutputPath(%q, %q) = %q; want %q", tc.in, tc.ext, got, tc.want)
		}
	}
}

func TestZipEntries(t *testing.T) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	if err := WriteZipEntry(zw, "a.bin", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	files, err := OpenZip(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	data, err := ReadZipEntry(files, "a.bin")
	if err != nil || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("ReadZipEntry(a.bin) = %v, %v; want [1 2 3], nil", data, err)
	}
	if _, err := ReadZipEntry(files, "b.bin"); !errors.Is(err, ErrMissingEntry) {
		t.Errorf("ReadZipEntry(b.bin) error = %v; want ErrMissingEntry", err)
	}
	if _, err := OpenZip([]byte("nope")); err == nil {
		t.Error("OpenZip of garbage succeeded")
	}
}
