// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package wsframe

// applyMask XORs data in place against the 4-byte mask key, cycling the
// key every 4 bytes per RFC 6455 §5.3. spec.md treats apply_mask as an
// external collaborator; none of the example repos ship a standalone
// masking primitive, so this is the minimal reimplementation RFC 6455
// requires, kept intentionally small rather than imported.
func applyMask(data []byte, key uint32) {
	var k [4]byte
	k[0] = byte(key)
	k[1] = byte(key >> 8)
	k[2] = byte(key >> 16)
	k[3] = byte(key >> 24)

	for i := range data {
		data[i] ^= k[i%4]
	}
}
