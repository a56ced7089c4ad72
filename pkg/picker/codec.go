package picker

// MaxIndex is the largest region index a 24-bit color can carry; the color
// 0 is reserved for the background.
const MaxIndex = 1<<24 - 2

// EncodeID turns a flat region index into the flat RGBA color drawn for it
// in the picking pass. The channels are exact multiples of 1/255.
func EncodeID(index int) [4]float32 {
	id := index + 1
	r := (id >> 16) & 0xff
	g := (id >> 8) & 0xff
	b := id & 0xff
	return [4]float32{float32(r) / 255, float32(g) / 255, float32(b) / 255, 1}
}

// DecodeID reverses EncodeID on a read-back pixel. ok is false for the
// background.
func DecodeID(r, g, b byte) (index int, ok bool) {
	id := int(r)<<16 | int(g)<<8 | int(b)
	if id == 0 {
		return 0, false
	}
	return id - 1, true
}
