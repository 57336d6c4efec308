package vocab

import "strings"

// PhoneticKey computes a compact consonant-skeleton key in the Double
// Metaphone family: case and diacritics are folded, common digraphs are
// reduced to a single sound symbol, vowels after the first position are
// dropped, and runs of the same symbol collapse. Spelling variants of
// the same surname ("Smyth", "Smith") share a key; unrelated names
// almost never do.
//
// Example:
//
//	vocab.PhoneticKey("Smith") == vocab.PhoneticKey("Smyth") // "SM0"
func PhoneticKey(word string) string {
	w := Fold(word)
	if w == "" {
		return ""
	}

	var out []byte
	emit := func(c byte) {
		if len(out) == 0 || out[len(out)-1] != c {
			out = append(out, c)
		}
	}

	i := 0
	for i < len(w) {
		c := w[i]
		var next byte
		if i+1 < len(w) {
			next = w[i+1]
		}

		switch {
		case c == 'p' && next == 'h':
			emit('F')
			i += 2
		case c == 't' && next == 'h':
			emit('0')
			i += 2
		case c == 's' && next == 'h':
			emit('X')
			i += 2
		case c == 'c' && next == 'h':
			emit('X')
			i += 2
		case c == 'c' && next == 'k':
			emit('K')
			i += 2
		case c == 'g' && next == 'h':
			// silent as in "Wright"
			i += 2
		case c == 'k' && next == 'n' && i == 0:
			emit('N')
			i += 2
		case c == 'w' && next == 'r' && i == 0:
			emit('R')
			i += 2
		default:
			switch c {
			case 'a', 'e', 'i', 'o', 'u', 'y':
				if i == 0 {
					emit('A')
				}
			case 'b', 'p':
				emit('P')
			case 'c', 'k', 'q':
				emit('K')
			case 'd', 't':
				emit('T')
			case 'f', 'v':
				emit('F')
			case 'g', 'j':
				emit('J')
			case 'l':
				emit('L')
			case 'm', 'n':
				emit('M')
			case 'r':
				emit('R')
			case 's', 'z':
				emit('S')
			case 'x':
				emit('K')
				emit('S')
			case 'w', 'h':
				// skipped outside digraphs
			default:
				// punctuation inside names (O'Brien, Smith-Jones)
			}
			i++
		}
	}

	const maxKey = 6
	key := string(out)
	if len(key) > maxKey {
		key = key[:maxKey]
	}
	return strings.ToUpper(key)
}
