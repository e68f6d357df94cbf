package quadrature

// transitions[prev<<2|cur] is the count change for a move between two A/B
// states. 00 -> 01 -> 11 -> 10 is clockwise. Impossible jumps (both lines
// changing at once) count as zero.
var transitions = [16]int{
	0, +1, -1, 0,
	-1, 0, 0, +1,
	+1, 0, 0, -1,
	0, -1, +1, 0,
}

// Decoder is a 4x quadrature decoder with a reference mark.
type Decoder struct {
	state    uint8
	count    int
	refFound bool
}

func NewDecoder(a, b bool) *Decoder {
	return &Decoder{state: pack(a, b)}
}

func pack(a, b bool) uint8 {
	var s uint8
	if a {
		s |= 2
	}
	if b {
		s |= 1
	}
	return s
}

// Update feeds the current level of both lines.
func (d *Decoder) Update(a, b bool) {
	cur := pack(a, b)
	d.count += transitions[d.state<<2|cur]
	d.state = cur
}

// Mark zeroes the count at the reference slot. Only the first mark is used;
// after that the count is trusted.
func (d *Decoder) Mark() {
	if d.refFound {
		return
	}
	d.refFound = true
	d.count = 0
}

func (d *Decoder) Count() int {
	return d.count
}

func (d *Decoder) ReferenceFound() bool {
	return d.refFound
}

// Degrees converts a count to degrees given the counts per revolution,
// truncating toward zero.
func Degrees(count, countsPerRev int) int {
	if countsPerRev <= 0 {
		return 0
	}
	return count * 360 / countsPerRev
}
