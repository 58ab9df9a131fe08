// internal/cw/alphabet.go
package cw

import "unicode"

// MaxSymbols is the longest code the alphabet holds. It bounds the depth of MorseTree.
const MaxSymbols = 6

// codes is the ITU alphabet: letters, digits and the common punctuation marks.
// Anything not listed here is skipped when encoding.
var codes = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".", 'F': "..-.",
	'G': "--.", 'H': "....", 'I': "..", 'J': ".---", 'K': "-.-", 'L': ".-..",
	'M': "--", 'N': "-.", 'O': "---", 'P': ".--.", 'Q': "--.-", 'R': ".-.",
	'S': "...", 'T': "-", 'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-",
	'Y': "-.--", 'Z': "--..",

	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",

	'.': ".-.-.-", ',': "--..--", '?': "..--..", '\'': ".----.", '!': "-.-.--",
	'/': "-..-.", '(': "-.--.", ')': "-.--.-", '&': ".-...", ':': "---...",
	';': "-.-.-.", '=': "-...-", '+': ".-.-.", '-': "-....-", '_': "..--.-",
	'"': ".-..-.", '@': ".--.-.",
}

// MorseTree is the binary tree for Morse code lookup.
// Left branch = dit, Right branch = dah.
// Index 0 is unused, 1 is the root (no elements yet).
// Tree structure: parent at i, left child at 2i, right child at 2i+1
// A zero entry means the element sequence has no character.
var MorseTree [1 << (MaxSymbols + 1)]rune

func init() {
	for r, code := range codes {
		MorseTree[treeIndex(code)] = r
	}
}

// treeIndex walks MorseTree from the root following code.
func treeIndex(code string) int {
	i := 1
	for _, s := range code {
		i = descend(i, s == '-')
	}
	return i
}

func descend(i int, dah bool) int {
	if dah {
		return i*2 + 1
	}
	return i * 2
}

// CodeFor returns the dit/dah code for r. Lookup is case-insensitive.
func CodeFor(r rune) (string, bool) {
	code, ok := codes[unicode.ToUpper(r)]
	return code, ok
}

// Lookup returns the character for a dit/dah code, or false when the code
// is not part of the alphabet.
func Lookup(code string) (rune, bool) {
	if code == "" || len(code) > MaxSymbols {
		return 0, false
	}
	for _, s := range code {
		if s != '.' && s != '-' {
			return 0, false
		}
	}
	r := MorseTree[treeIndex(code)]
	return r, r != 0
}
