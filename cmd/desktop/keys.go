package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"goemu/pkg/config"
)

// hostKeys covers every character a key binding may name.
var hostKeys = map[rune]ebiten.Key{
	'0': ebiten.Key0, '1': ebiten.Key1, '2': ebiten.Key2, '3': ebiten.Key3,
	'4': ebiten.Key4, '5': ebiten.Key5, '6': ebiten.Key6, '7': ebiten.Key7,
	'8': ebiten.Key8, '9': ebiten.Key9,
	'A': ebiten.KeyA, 'B': ebiten.KeyB, 'C': ebiten.KeyC, 'D': ebiten.KeyD,
	'E': ebiten.KeyE, 'F': ebiten.KeyF, 'G': ebiten.KeyG, 'H': ebiten.KeyH,
	'I': ebiten.KeyI, 'J': ebiten.KeyJ, 'K': ebiten.KeyK, 'L': ebiten.KeyL,
	'M': ebiten.KeyM, 'N': ebiten.KeyN, 'O': ebiten.KeyO, 'P': ebiten.KeyP,
	'Q': ebiten.KeyQ, 'R': ebiten.KeyR, 'S': ebiten.KeyS, 'T': ebiten.KeyT,
	'U': ebiten.KeyU, 'V': ebiten.KeyV, 'W': ebiten.KeyW, 'X': ebiten.KeyX,
	'Y': ebiten.KeyY, 'Z': ebiten.KeyZ,
	',': ebiten.KeyComma, '.': ebiten.KeyPeriod, '/': ebiten.KeySlash,
	';': ebiten.KeySemicolon, '-': ebiten.KeyMinus, '=': ebiten.KeyEqual,
	' ': ebiten.KeySpace,
}

// binding ties a keypad key to a host key.
type binding struct {
	pad  uint8
	host ebiten.Key
}

// bindKeys resolves the config bindings. Unknown characters stay unbound.
func bindKeys(f config.File) []binding {
	var out []binding
	for pad, r := range f.Bindings() {
		host, ok := hostKeys[r]
		if !ok {
			continue
		}
		out = append(out, binding{pad: uint8(pad), host: host})
	}
	return out
}
