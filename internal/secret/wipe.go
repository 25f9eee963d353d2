package secret

// Wipe zeroes b in place. Call it on password buffers once they are hashed.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
