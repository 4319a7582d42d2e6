package rs

// Rows of the conventional to dual basis transform.
var tal = [8]byte{0x8d, 0xef, 0xec, 0x86, 0xfa, 0x99, 0xaf, 0x7b}

var (
	taltab  [256]byte // conventional to dual basis
	tal1tab [256]byte // dual to conventional basis
)

func init() {
	for i := 0; i < 256; i++ {
		var v byte
		for bit := 0; bit < 8; bit++ {
			if i&(1<<bit) != 0 {
				v ^= tal[7-bit]
			}
		}
		taltab[i] = v
		tal1tab[v] = byte(i)
	}
}

// ToDual converts a conventional basis symbol to the dual basis.
func ToDual(v byte) byte {
	return taltab[v]
}

// FromDual converts a dual basis symbol to the conventional basis.
func FromDual(v byte) byte {
	return tal1tab[v]
}
